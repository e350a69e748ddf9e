package omronfins

import (
	"fmt"
	"strconv"
	"strings"
)

// MemoryArea is the FINS memory area code sent in read/write commands.
type MemoryArea byte

// Memory area codes for CS/CJ series CPUs.
const (
	MemoryAreaCIOBit      MemoryArea = 0x30
	MemoryAreaWRBit       MemoryArea = 0x31
	MemoryAreaHRBit       MemoryArea = 0x32
	MemoryAreaARBit       MemoryArea = 0x33
	MemoryAreaCIOForceBit MemoryArea = 0x70
	MemoryAreaWRForceBit  MemoryArea = 0x71
	MemoryAreaHRForceBit  MemoryArea = 0x72

	MemoryAreaCIOWord      MemoryArea = 0xB0
	MemoryAreaWRWord       MemoryArea = 0xB1
	MemoryAreaHRWord       MemoryArea = 0xB2
	MemoryAreaARWord       MemoryArea = 0xB3
	MemoryAreaCIOForceWord MemoryArea = 0xF0
	MemoryAreaWRForceWord  MemoryArea = 0xF1
	MemoryAreaHRForceWord  MemoryArea = 0xF2

	MemoryAreaTimerFlag      MemoryArea = 0x09
	MemoryAreaTimerForceFlag MemoryArea = 0x49
	MemoryAreaTimerCurrent   MemoryArea = 0x89

	MemoryAreaDMBit  MemoryArea = 0x02
	MemoryAreaDMWord MemoryArea = 0x82

	MemoryAreaEMCurrentBit  MemoryArea = 0x0A
	MemoryAreaEMCurrentWord MemoryArea = 0x98
	MemoryAreaEMBankNumber  MemoryArea = 0xBC

	MemoryAreaTaskBit    MemoryArea = 0x06
	MemoryAreaTaskStatus MemoryArea = 0x46
	MemoryAreaIndexReg   MemoryArea = 0xDC
	MemoryAreaDataReg    MemoryArea = 0xBC
)

// EMBit returns the bit area code of extended memory bank 0x00-0x18.
func EMBit(bank byte) MemoryArea {
	if bank < 0x10 {
		return MemoryArea(0x20 + bank)
	}
	return MemoryArea(0xE0 + bank - 0x10)
}

// EMWord returns the word area code of extended memory bank 0x00-0x18.
func EMWord(bank byte) MemoryArea {
	if bank < 0x10 {
		return MemoryArea(0xA0 + bank)
	}
	return MemoryArea(0x60 + bank - 0x10)
}

// MemoryAreaInfo describes one entry of the memory area table.
type MemoryAreaInfo struct {
	Code MemoryArea
	Name string
	// ElementSize is the number of bytes one addressed element occupies on the wire.
	ElementSize int
}

// IsBit reports whether elements of the area are individually addressed bits.
func (i MemoryAreaInfo) IsBit() bool {
	return i.ElementSize == 1
}

var memoryAreas = buildMemoryAreaTable()

func buildMemoryAreaTable() []MemoryAreaInfo {
	table := []MemoryAreaInfo{
		{MemoryAreaCIOBit, "CIO_BIT", 1},
		{MemoryAreaWRBit, "WR_BIT", 1},
		{MemoryAreaHRBit, "HR_BIT", 1},
		{MemoryAreaARBit, "AR_BIT", 1},
		{MemoryAreaCIOForceBit, "CIO_FORCE_BIT", 1},
		{MemoryAreaWRForceBit, "WR_FORCE_BIT", 1},
		{MemoryAreaHRForceBit, "HR_FORCE_BIT", 1},
		{MemoryAreaCIOWord, "CIO_WORD", 2},
		{MemoryAreaWRWord, "WR_WORD", 2},
		{MemoryAreaHRWord, "HR_WORD", 2},
		{MemoryAreaARWord, "AR_WORD", 2},
		{MemoryAreaCIOForceWord, "CIO_FORCE_WORD", 4},
		{MemoryAreaWRForceWord, "WR_FORCE_WORD", 4},
		{MemoryAreaHRForceWord, "HR_FORCE_WORD", 4},
		{MemoryAreaTimerFlag, "TIM_FLG", 1},
		{MemoryAreaTimerForceFlag, "TIM_FORCE_FLG", 1},
		{MemoryAreaTimerCurrent, "TIM_CURRENT", 2},
		{MemoryAreaDMBit, "DM_BIT", 1},
		{MemoryAreaDMWord, "DM_WORD", 2},
	}
	for bank := byte(0); bank <= 0x18; bank++ {
		table = append(table, MemoryAreaInfo{EMBit(bank), fmt.Sprintf("EM%X_BIT", bank), 1})
	}
	for bank := byte(0); bank <= 0x17; bank++ {
		table = append(table, MemoryAreaInfo{EMWord(bank), fmt.Sprintf("EM%X_WORD", bank), 2})
	}
	return append(table,
		MemoryAreaInfo{MemoryAreaEMCurrentBit, "EM_CURRENT_BIT", 1},
		MemoryAreaInfo{MemoryAreaEMCurrentWord, "EM_CURRENT_WORD", 2},
		MemoryAreaInfo{MemoryAreaEMBankNumber, "EM_CURRENT_BANK_NUM", 2},
		MemoryAreaInfo{MemoryAreaTaskBit, "TK_BIT", 1},
		MemoryAreaInfo{MemoryAreaTaskStatus, "TK_STATUS", 1},
		MemoryAreaInfo{MemoryAreaIndexReg, "IR", 4},
		MemoryAreaInfo{MemoryAreaDataReg, "DR", 2},
	)
}

// short names accepted by ParseMemoryArea in addition to the table names
var memoryAreaAliases = map[string]MemoryArea{
	"CIO": MemoryAreaCIOWord,
	"WR":  MemoryAreaWRWord,
	"HR":  MemoryAreaHRWord,
	"AR":  MemoryAreaARWord,
	"DM":  MemoryAreaDMWord,
	"D":   MemoryAreaDMWord,
	"W":   MemoryAreaWRWord,
	"H":   MemoryAreaHRWord,
	"A":   MemoryAreaARWord,
	"T":   MemoryAreaTimerCurrent,
	"TIM": MemoryAreaTimerCurrent,
}

// MemoryAreas returns a copy of the memory area table.
func MemoryAreas() []MemoryAreaInfo {
	return append([]MemoryAreaInfo(nil), memoryAreas...)
}

// LookupMemoryArea returns the table entry for code.
// EM_CURRENT_BANK_NUM and DR share code 0xBC; the first entry wins.
func LookupMemoryArea(code MemoryArea) (MemoryAreaInfo, bool) {
	for _, info := range memoryAreas {
		if info.Code == code {
			return info, true
		}
	}
	return MemoryAreaInfo{}, false
}

// ParseMemoryArea resolves a table name ("DM_WORD", "em0_bit"), a short alias
// ("dm", "cio") or a numeric code ("0x82", "130").
func ParseMemoryArea(s string) (MemoryArea, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return 0, fmt.Errorf("empty memory area")
	}
	if area, ok := memoryAreaAliases[name]; ok {
		return area, nil
	}
	for _, info := range memoryAreas {
		if info.Name == name {
			return info.Code, nil
		}
	}
	if strings.HasPrefix(name, "EM") && !strings.Contains(name, "_") {
		// "EM3" is word access to bank 3
		if bank, err := strconv.ParseUint(name[2:], 16, 8); err == nil && bank <= 0x17 {
			return EMWord(byte(bank)), nil
		}
	}
	code, err := strconv.ParseUint(strings.ToLower(name), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown memory area %q", s)
	}
	return MemoryArea(code), nil
}

func (m MemoryArea) String() string {
	if info, ok := LookupMemoryArea(m); ok {
		return info.Name
	}
	return fmt.Sprintf("0x%02X", byte(m))
}
