package omronfins

import "fmt"

// CompletionCode is the 16-bit end code of a FINS response. Zero means
// normal completion; anything else is a failure reported by the network or
// the PLC.
type CompletionCode uint16

// Completion codes of the FINS command reference.
const (
	EndCodeNormalCompletion CompletionCode = 0x0000
	EndCodeServiceCanceled  CompletionCode = 0x0001

	EndCodeLocalNodeNotInNetwork CompletionCode = 0x0101
	EndCodeTokenTimeout          CompletionCode = 0x0102
	EndCodeRetriesFailed         CompletionCode = 0x0103
	EndCodeTooManySendFrames     CompletionCode = 0x0104
	EndCodeNodeAddressRangeError CompletionCode = 0x0105
	EndCodeNodeAddressDuplicated CompletionCode = 0x0106

	EndCodeDestinationNodeNotInNetwork CompletionCode = 0x0201
	EndCodeUnitMissing                 CompletionCode = 0x0202
	EndCodeThirdNodeMissing            CompletionCode = 0x0203
	EndCodeDestinationNodeBusy         CompletionCode = 0x0204
	EndCodeResponseTimeout             CompletionCode = 0x0205

	EndCodeCommunicationsControllerError CompletionCode = 0x0301
	EndCodeCPUUnitError                  CompletionCode = 0x0302
	EndCodeControllerError               CompletionCode = 0x0303
	EndCodeUnitNumberError               CompletionCode = 0x0304

	EndCodeUndefinedCommand           CompletionCode = 0x0401
	EndCodeNotSupportedByModelVersion CompletionCode = 0x0402

	EndCodeDestinationAddressSettingError CompletionCode = 0x0501
	EndCodeNoRoutingTables                CompletionCode = 0x0502
	EndCodeRoutingTableError              CompletionCode = 0x0503
	EndCodeTooManyRelays                  CompletionCode = 0x0504

	EndCodeCommandTooLong        CompletionCode = 0x1001
	EndCodeCommandTooShort       CompletionCode = 0x1002
	EndCodeElementsDataDontMatch CompletionCode = 0x1003
	EndCodeCommandFormatError    CompletionCode = 0x1004
	EndCodeHeaderError           CompletionCode = 0x1005

	EndCodeAreaClassificationMissing CompletionCode = 0x1101
	EndCodeAccessSizeError           CompletionCode = 0x1102
	EndCodeAddressRangeError         CompletionCode = 0x1103
	EndCodeAddressRangeExceeded      CompletionCode = 0x1104
	EndCodeProgramMissing            CompletionCode = 0x1106
	EndCodeRelationalError           CompletionCode = 0x1109
	EndCodeDuplicateDataAccess       CompletionCode = 0x110A
	EndCodeResponseTooBig            CompletionCode = 0x110B
	EndCodeParameterError            CompletionCode = 0x110C

	EndCodeReadNotPossibleProtected      CompletionCode = 0x2002
	EndCodeReadNotPossibleTableMissing   CompletionCode = 0x2003
	EndCodeReadNotPossibleDataMissing    CompletionCode = 0x2004
	EndCodeReadNotPossibleProgramMissing CompletionCode = 0x2005
	EndCodeReadNotPossibleFileMissing    CompletionCode = 0x2006
	EndCodeReadNotPossibleDataMismatch   CompletionCode = 0x2007

	EndCodeWriteNotPossibleReadOnly       CompletionCode = 0x2101
	EndCodeWriteNotPossibleProtected      CompletionCode = 0x2102
	EndCodeWriteNotPossibleCannotRegister CompletionCode = 0x2103
	EndCodeWriteNotPossibleProgramMissing CompletionCode = 0x2105
	EndCodeWriteNotPossibleFileMissing    CompletionCode = 0x2106
	EndCodeWriteNotPossibleFileNameExists CompletionCode = 0x2107
	EndCodeWriteNotPossibleCannotChange   CompletionCode = 0x2108

	EndCodeNotExecutableInCurrentMode  CompletionCode = 0x2201
	EndCodeNotExecutableWhileRunning   CompletionCode = 0x2202
	EndCodeWrongPLCModeProgram         CompletionCode = 0x2203
	EndCodeWrongPLCModeDebug           CompletionCode = 0x2204
	EndCodeWrongPLCModeMonitor         CompletionCode = 0x2205
	EndCodeWrongPLCModeRun             CompletionCode = 0x2206
	EndCodeSpecifiedNodeNotPollingNode CompletionCode = 0x2207
	EndCodeStepCannotBeExecuted        CompletionCode = 0x2208

	EndCodeFileDeviceMissing CompletionCode = 0x2301
	EndCodeMemoryMissing     CompletionCode = 0x2302
	EndCodeClockMissing      CompletionCode = 0x2303

	EndCodeCannotStartStopTableMissing CompletionCode = 0x2401

	EndCodeMemoryError                CompletionCode = 0x2502
	EndCodeIOSettingError             CompletionCode = 0x2503
	EndCodeTooManyIOPoints            CompletionCode = 0x2504
	EndCodeCPUBusError                CompletionCode = 0x2505
	EndCodeIODuplication              CompletionCode = 0x2506
	EndCodeIOBusError                 CompletionCode = 0x2507
	EndCodeSYSMACBUS2Error            CompletionCode = 0x2509
	EndCodeCPUBusUnitError            CompletionCode = 0x250A
	EndCodeSYSMACBUSNumberDuplicated  CompletionCode = 0x250D
	EndCodeMemoryStatusError          CompletionCode = 0x250F
	EndCodeSYSMACBUSTerminatorMissing CompletionCode = 0x251F

	EndCodeNoProtection            CompletionCode = 0x2601
	EndCodeIncorrectPassword       CompletionCode = 0x2602
	EndCodeProtected               CompletionCode = 0x2604
	EndCodeServiceAlreadyExecuting CompletionCode = 0x2605
	EndCodeServiceStopped          CompletionCode = 0x2606
	EndCodeNoExecutionRight        CompletionCode = 0x2607
	EndCodeSettingsNotComplete     CompletionCode = 0x2608
	EndCodeNecessaryItemsNotSet    CompletionCode = 0x2609
	EndCodeNumberAlreadyDefined    CompletionCode = 0x260A
	EndCodeErrorWillNotClear       CompletionCode = 0x260B

	EndCodeNoAccessRight  CompletionCode = 0x3001
	EndCodeServiceAborted CompletionCode = 0x4001
)

const (
	endCodeRelayErrorFlag     = 0x8000
	endCodeNonFatalCPUErrFlag = 0x0040
	endCodeFatalCPUErrFlag    = 0x0080
	endCodeFlagMask           = endCodeRelayErrorFlag | endCodeNonFatalCPUErrFlag | endCodeFatalCPUErrFlag
)

var endCodeText = map[CompletionCode]string{
	EndCodeNormalCompletion: "normal completion",
	EndCodeServiceCanceled:  "service canceled",

	EndCodeLocalNodeNotInNetwork: "local node not in network",
	EndCodeTokenTimeout:          "token timeout",
	EndCodeRetriesFailed:         "retries failed",
	EndCodeTooManySendFrames:     "too many send frames",
	EndCodeNodeAddressRangeError: "node address range error",
	EndCodeNodeAddressDuplicated: "node address duplication",

	EndCodeDestinationNodeNotInNetwork: "destination node not in network",
	EndCodeUnitMissing:                 "unit missing",
	EndCodeThirdNodeMissing:            "third node missing",
	EndCodeDestinationNodeBusy:         "destination node busy",
	EndCodeResponseTimeout:             "response timeout",

	EndCodeCommunicationsControllerError: "communications controller error",
	EndCodeCPUUnitError:                  "CPU unit error",
	EndCodeControllerError:               "controller error",
	EndCodeUnitNumberError:               "unit number error",

	EndCodeUndefinedCommand:           "undefined command",
	EndCodeNotSupportedByModelVersion: "not supported by model/version",

	EndCodeDestinationAddressSettingError: "destination address setting error",
	EndCodeNoRoutingTables:                "no routing tables",
	EndCodeRoutingTableError:              "routing table error",
	EndCodeTooManyRelays:                  "too many relays",

	EndCodeCommandTooLong:        "command too long",
	EndCodeCommandTooShort:       "command too short",
	EndCodeElementsDataDontMatch: "elements/data don't match",
	EndCodeCommandFormatError:    "command format error",
	EndCodeHeaderError:           "header error",

	EndCodeAreaClassificationMissing: "area classification missing",
	EndCodeAccessSizeError:           "access size error",
	EndCodeAddressRangeError:         "address range error",
	EndCodeAddressRangeExceeded:      "address range exceeded",
	EndCodeProgramMissing:            "program missing",
	EndCodeRelationalError:           "relational error",
	EndCodeDuplicateDataAccess:       "duplicate data access",
	EndCodeResponseTooBig:            "response too big",
	EndCodeParameterError:            "parameter error",

	EndCodeReadNotPossibleProtected:      "read not possible: protected",
	EndCodeReadNotPossibleTableMissing:   "read not possible: table missing",
	EndCodeReadNotPossibleDataMissing:    "read not possible: data missing",
	EndCodeReadNotPossibleProgramMissing: "read not possible: program missing",
	EndCodeReadNotPossibleFileMissing:    "read not possible: file missing",
	EndCodeReadNotPossibleDataMismatch:   "read not possible: data mismatch",

	EndCodeWriteNotPossibleReadOnly:       "write not possible: read-only",
	EndCodeWriteNotPossibleProtected:      "write not possible: protected",
	EndCodeWriteNotPossibleCannotRegister: "write not possible: cannot register",
	EndCodeWriteNotPossibleProgramMissing: "write not possible: program missing",
	EndCodeWriteNotPossibleFileMissing:    "write not possible: file missing",
	EndCodeWriteNotPossibleFileNameExists: "write not possible: file name already exists",
	EndCodeWriteNotPossibleCannotChange:   "write not possible: cannot change",

	EndCodeNotExecutableInCurrentMode:  "not executable in current mode",
	EndCodeNotExecutableWhileRunning:   "not possible while running",
	EndCodeWrongPLCModeProgram:         "wrong PLC mode: in PROGRAM mode",
	EndCodeWrongPLCModeDebug:           "wrong PLC mode: in DEBUG mode",
	EndCodeWrongPLCModeMonitor:         "wrong PLC mode: in MONITOR mode",
	EndCodeWrongPLCModeRun:             "wrong PLC mode: in RUN mode",
	EndCodeSpecifiedNodeNotPollingNode: "specified node not polling node",
	EndCodeStepCannotBeExecuted:        "step cannot be executed",

	EndCodeFileDeviceMissing: "file device missing",
	EndCodeMemoryMissing:     "memory missing",
	EndCodeClockMissing:      "clock missing",

	EndCodeCannotStartStopTableMissing: "cannot start/stop: table missing",

	EndCodeMemoryError:                "memory error",
	EndCodeIOSettingError:             "I/O setting error",
	EndCodeTooManyIOPoints:            "too many I/O points",
	EndCodeCPUBusError:                "CPU bus error",
	EndCodeIODuplication:              "I/O duplication",
	EndCodeIOBusError:                 "I/O bus error",
	EndCodeSYSMACBUS2Error:            "SYSMAC BUS/2 error",
	EndCodeCPUBusUnitError:            "CPU bus unit error",
	EndCodeSYSMACBUSNumberDuplicated:  "SYSMAC BUS number duplication",
	EndCodeMemoryStatusError:          "memory status error",
	EndCodeSYSMACBUSTerminatorMissing: "SYSMAC BUS terminator missing",

	EndCodeNoProtection:            "no protection",
	EndCodeIncorrectPassword:       "incorrect password",
	EndCodeProtected:               "protected",
	EndCodeServiceAlreadyExecuting: "service already executing",
	EndCodeServiceStopped:          "service stopped",
	EndCodeNoExecutionRight:        "no execution right",
	EndCodeSettingsNotComplete:     "settings not complete",
	EndCodeNecessaryItemsNotSet:    "necessary items not set",
	EndCodeNumberAlreadyDefined:    "number already defined",
	EndCodeErrorWillNotClear:       "error will not clear",

	EndCodeNoAccessRight:  "no access right",
	EndCodeServiceAborted: "service aborted",
}

// OK reports normal completion.
func (c CompletionCode) OK() bool {
	return c == EndCodeNormalCompletion
}

// Main returns the main response code (first byte without the relay flag).
func (c CompletionCode) Main() byte {
	return byte((c &^ endCodeFlagMask) >> 8)
}

// Sub returns the sub response code (second byte without the CPU error flags).
func (c CompletionCode) Sub() byte {
	return byte(c &^ endCodeFlagMask)
}

// NetworkRelayError reports the relay error flag (bit 15).
func (c CompletionCode) NetworkRelayError() bool {
	return c&endCodeRelayErrorFlag != 0
}

// FatalCPUError reports the fatal CPU unit error flag (bit 7).
func (c CompletionCode) FatalCPUError() bool {
	return c&endCodeFatalCPUErrFlag != 0
}

// NonFatalCPUError reports the non-fatal CPU unit error flag (bit 6).
func (c CompletionCode) NonFatalCPUError() bool {
	return c&endCodeNonFatalCPUErrFlag != 0
}

// Description returns the manual's text for the code, ignoring the flag bits.
func (c CompletionCode) Description() string {
	if text, ok := endCodeText[c&^endCodeFlagMask]; ok {
		return text
	}
	return "unknown completion code"
}

// Hex formats the code as 0xMMSS.
func (c CompletionCode) Hex() string {
	return fmt.Sprintf("0x%04X", uint16(c))
}

func (c CompletionCode) String() string {
	return c.Hex() + " (" + c.Description() + ")"
}
