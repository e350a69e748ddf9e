/*
Package omronfins implements the client side of the Omron FINS (Factory
Interface Network Service) protocol over UDP: memory area read (01 01) and
memory area write (01 02).

The package has two layers. The codec (BuildHeader, BuildReadCommand,
BuildWriteCommand, DecodeResponse, IsResponseToMe) is pure and does no I/O,
so any transport can reuse it. Client owns one socket and one destination
and runs one request/response exchange at a time.

# Quick Start

	local := omronfins.NewLocalAddress(0, 170, 0)
	plc := omronfins.NewAddress("192.168.250.1", 9600, 0, 1, 0)

	client, err := omronfins.NewUDPClient(local, plc,
		omronfins.WithReceiveTimeout(2*time.Second),
		omronfins.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	// D100, one signed 32-bit integer
	resp, err := client.ReadMemArea(ctx, omronfins.MemoryAreaDMWord, 100, 0, 1, omronfins.TypeInt)
	if err != nil {
		log.Fatal(err) // the PLC did not answer
	}
	if !resp.CompletionCode.OK() {
		log.Printf("PLC error %s", resp.CompletionCode)
	}
	fmt.Println(resp.Value) // int32

	// D200..D202, three words
	code, err := client.WriteMemArea(ctx, omronfins.MemoryAreaDMWord, 200, 0, 3,
		omronfins.Many(omronfins.Uint16(1), omronfins.Uint16(2), omronfins.Uint16(3)))

# Word Order

PLC words are big-endian, but values spanning several words are sent
least significant word first. EncodeValue reverses the 16-bit words of
every value wider than two bytes (raw Bytes values excepted) and
DecodeResponse reverses the words of the whole payload for text and for
types wider than two bytes. A multi-element read of a wide type therefore
yields its elements in wire order, last element first.

# Errors

Transport failures are TransportError values with four kinds (send timeout,
send error, receive timeout, receive error). A nonzero completion code is not
an error: it is returned in Response.CompletionCode or as the CompletionCode
of a write. Codec errors are SizeMismatchError, TruncatedError and
MisalignedPayloadError.

# Interceptors and Plugins

Interceptors wrap ReadMemArea and WriteMemArea:

	client.SetInterceptor(omronfins.ChainInterceptors(
		omronfins.LoggingInterceptor(logger),
		omronfins.ValidationInterceptor(),
		omronfins.RetryInterceptorConditional(2, 100*time.Millisecond, omronfins.IsTransportError, logger),
	))

Plugins observe every exchange. ConnectionWatchdog reports when the PLC
stops or resumes answering:

	wd := omronfins.NewConnectionWatchdog(0)
	_ = client.Use(wd)
	go func() {
		for evt := range wd.Events() {
			log.Printf("plc %s", evt.Type)
		}
	}()
*/
package omronfins
