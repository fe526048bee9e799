package program

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// ErrorCode is a custom error code returned by a Solana program.
type ErrorCode uint32

// tip_jar errors.
const (
	ErrInvalidAmount ErrorCode = 6000 + iota
	ErrUnauthorized
	ErrInsufficientFunds
	ErrMathOverflow
)

// Framework and system codes that show up in front of this program.
const (
	ErrAccountAlreadyInUse   ErrorCode = 0
	ErrConstraintSeeds       ErrorCode = 2006
	ErrAccountNotInitialized ErrorCode = 3012
)

var errorNames = map[ErrorCode]string{
	ErrInvalidAmount:         "InvalidAmount",
	ErrUnauthorized:          "Unauthorized",
	ErrInsufficientFunds:     "InsufficientFunds",
	ErrMathOverflow:          "MathOverflow",
	ErrAccountAlreadyInUse:   "AccountAlreadyInUse",
	ErrConstraintSeeds:       "ConstraintSeeds",
	ErrAccountNotInitialized: "AccountNotInitialized",
}

var errorMessages = map[ErrorCode]string{
	ErrInvalidAmount:         "Invalid amount",
	ErrUnauthorized:          "Unauthorized",
	ErrInsufficientFunds:     "Insufficient funds in vault",
	ErrMathOverflow:          "Math overflow",
	ErrAccountAlreadyInUse:   "Account already in use",
	ErrConstraintSeeds:       "A seeds constraint was violated",
	ErrAccountNotInitialized: "The program expected this account to be already initialized",
}

func (c ErrorCode) String() string {
	if name, ok := errorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Custom(%d)", uint32(c))
}

// Message is the program's own message for the code, empty when unknown.
func (c ErrorCode) Message() string {
	return errorMessages[c]
}

var customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// ParseProgramError finds the last "custom program error: 0x.." in an RPC
// error text. The last one wins because CPI failures are reported before the
// failure of the outer instruction.
func ParseProgramError(text string) (ErrorCode, bool) {
	matches := customErrorRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	code, err := strconv.ParseUint(matches[len(matches)-1][1], 16, 32)
	if err != nil {
		return 0, false
	}
	return ErrorCode(code), true
}

// CodeFromTransactionError extracts the custom code from a transaction
// status error such as {"InstructionError":[0,{"Custom":6000}]}.
func CodeFromTransactionError(txErr interface{}) (ErrorCode, bool) {
	m, ok := txErr.(map[string]interface{})
	if !ok {
		return 0, false
	}
	ixErr, ok := m["InstructionError"].([]interface{})
	if !ok || len(ixErr) != 2 {
		return 0, false
	}
	detail, ok := ixErr[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := detail["Custom"].(type) {
	case float64:
		return ErrorCode(v), true
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 32)
		if err != nil {
			return 0, false
		}
		return ErrorCode(n), true
	case int:
		return ErrorCode(v), true
	case uint32:
		return ErrorCode(v), true
	}
	return 0, false
}
