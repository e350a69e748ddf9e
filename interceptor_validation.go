package omronfins

import "fmt"

const (
	// Frame limits of the memory area read/write commands over UDP.
	MaxReadCount  = 999
	MaxWriteCount = 996
	maxBitOffset  = 15
)

// ValidationInterceptor creates an interceptor that validates operation parameters
// before executing them. It checks for common mistakes like zero counts,
// empty writes and bit offsets past 15.
//
// Example:
//
//	client.SetInterceptor(omronfins.ValidationInterceptor())
//
//	// This will fail validation
//	_, err := client.ReadMemArea(ctx, omronfins.MemoryAreaDMWord, 100, 0, 0, omronfins.TypeUShort)
//	// Error: invalid read count: 0
func ValidationInterceptor() Interceptor {
	return ValidationInterceptorWithLimits(MaxReadCount, MaxWriteCount)
}

// ValidationInterceptorWithLimits creates a validation interceptor with custom limits
// maxReadCount: maximum number of elements that can be read in a single operation
// maxWriteCount: maximum number of elements that can be written in a single operation
func ValidationInterceptorWithLimits(maxReadCount, maxWriteCount uint16) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		if info.BitOffset > maxBitOffset {
			return nil, fmt.Errorf("invalid bit offset: %d (max %d)", info.BitOffset, maxBitOffset)
		}

		switch info.Operation {
		case OpReadMemArea:
			if info.Count == 0 {
				return nil, fmt.Errorf("invalid read count: 0")
			}
			if info.Count > maxReadCount {
				return nil, fmt.Errorf("read count too large: %d (max %d)", info.Count, maxReadCount)
			}
			if !info.ElementType.Valid() {
				return nil, fmt.Errorf("invalid element type: %s", info.ElementType)
			}

		case OpWriteMemArea:
			if info.Values.Len() == 0 {
				return nil, fmt.Errorf("invalid write data: no values")
			}
			if info.Count == 0 {
				return nil, fmt.Errorf("invalid write count: 0")
			}
			if info.Count > maxWriteCount {
				return nil, fmt.Errorf("write count too large: %d (max %d)", info.Count, maxWriteCount)
			}
			for _, v := range info.Values.Values() {
				if !v.Type.Valid() {
					return nil, fmt.Errorf("invalid element type: %s", v.Type)
				}
				if (v.Type == TypeString || v.Type == TypeBytes) && len(v.data) == 0 {
					return nil, fmt.Errorf("invalid write data: empty %s", v.Type)
				}
			}
		}

		return c.Invoke(nil)
	}
}

// AddressRange is an inclusive range of word addresses.
type AddressRange struct {
	Min, Max uint16
}

// AddressRangeValidator creates an interceptor that validates address ranges
// It ensures operations only access allowed memory regions.
//
// Example:
//
//	// Only allow DM area addresses 0-999
//	validator := omronfins.AddressRangeValidator(map[omronfins.MemoryArea]omronfins.AddressRange{
//		omronfins.MemoryAreaDMWord: {Min: 0, Max: 999},
//		omronfins.MemoryAreaDMBit:  {Min: 0, Max: 999},
//	})
//	client.SetInterceptor(validator)
func AddressRangeValidator(allowedRanges map[MemoryArea]AddressRange) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		addrRange, allowed := allowedRanges[info.MemoryArea]
		if !allowed {
			return nil, fmt.Errorf("memory area %s is not allowed", info.MemoryArea)
		}

		if info.Address < addrRange.Min || info.Address > addrRange.Max {
			return nil, fmt.Errorf("address %d is outside allowed range [%d-%d] for area %s",
				info.Address, addrRange.Min, addrRange.Max, info.MemoryArea)
		}

		// Bit areas address individual bits, so count does not advance the word address.
		if area, ok := LookupMemoryArea(info.MemoryArea); info.Count > 0 && !(ok && area.IsBit()) {
			endAddress := uint32(info.Address) + uint32(info.Count) - 1
			if endAddress > uint32(addrRange.Max) {
				return nil, fmt.Errorf("operation would access address %d, which exceeds max %d",
					endAddress, addrRange.Max)
			}
		}

		return c.Invoke(nil)
	}
}

// ReadOnlyInterceptor creates an interceptor that blocks all write operations
//
// Example:
//
//	client.SetInterceptor(omronfins.ReadOnlyInterceptor())
func ReadOnlyInterceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		if info.Operation.IsWrite() {
			return nil, fmt.Errorf("write operation %s is not allowed in read-only mode", info.Operation)
		}

		return c.Invoke(nil)
	}
}
