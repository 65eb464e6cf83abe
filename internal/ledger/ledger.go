package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrOverdraft occurs when the source account lacks the balance to cover a
	// transfer. No state is changed.
	ErrOverdraft = errors.New("overdraft")

	// ErrUnknownDestination indicates the destination chain or account does not
	// exist. Transfer re-credits the source before returning it.
	ErrUnknownDestination = errors.New("unknown destination")

	// ErrDenomAlreadyExists is returned when a denomination is registered twice.
	ErrDenomAlreadyExists = errors.New("denom already exists")

	// ErrDenomMismatch is returned when a minter is asked to mint a
	// denomination other than its own.
	ErrDenomMismatch = errors.New("denom mismatch")

	// ErrUnknownDenom is returned for lookups of unregistered denominations.
	ErrUnknownDenom = errors.New("unknown denom")

	// ErrInvalidAmount rejects negative or missing values.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNilAccount is returned when an operation is handed no account.
	ErrNilAccount = errors.New("nil account")

	// ErrInvalidChain rejects empty chain names and names containing '/' or ':'.
	ErrInvalidChain = errors.New("invalid chain name")
)

// ZeroAddressValue is the reserved address value of the burn sink present on
// every chain. No real account is ever assigned it.
const ZeroAddressValue = "0"

// ChainName identifies a simulated chain.
type ChainName string

// Denom names a fungible unit issued by one chain.
type Denom string

// AccountAddress locates an account on a chain.
type AccountAddress struct {
	ChainID ChainName `json:"chainId"`
	Value   string    `json:"value"`
}

// ZeroAddress returns the burn sink of chain.
func ZeroAddress(chain ChainName) AccountAddress {
	return AccountAddress{ChainID: chain, Value: ZeroAddressValue}
}

// IsZero reports whether the address is a burn sink.
func (a AccountAddress) IsZero() bool {
	return a.Value == ZeroAddressValue
}

func (a AccountAddress) String() string {
	return fmt.Sprintf("%s:%s", a.ChainID, a.Value)
}

// ParseAddress parses the chain:value form produced by String.
func ParseAddress(s string) (AccountAddress, error) {
	chain, value, ok := strings.Cut(s, ":")
	if !ok || chain == "" || value == "" {
		return AccountAddress{}, fmt.Errorf("malformed address %q", s)
	}
	return AccountAddress{ChainID: ChainName(chain), Value: value}, nil
}

// DenomAmount is a non-negative quantity of one denomination.
type DenomAmount struct {
	Denom Denom    `json:"denom"`
	Value *big.Int `json:"value"`
}

// NewDenomAmount is a convenience constructor for int64 values.
func NewDenomAmount(denom Denom, value int64) DenomAmount {
	return DenomAmount{Denom: denom, Value: big.NewInt(value)}
}

// ParseDenomAmount reads a base-10 value such as one received over HTTP or
// from a genesis file.
func ParseDenomAmount(denom Denom, value string) (DenomAmount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return DenomAmount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	amt := DenomAmount{Denom: denom, Value: v}
	if err := amt.Validate(); err != nil {
		return DenomAmount{}, err
	}
	return amt, nil
}

// Validate rejects missing or negative values and an empty denom.
func (d DenomAmount) Validate() error {
	if d.Value == nil || d.Value.Sign() < 0 {
		return fmt.Errorf("%w: %v %s", ErrInvalidAmount, d.Value, d.Denom)
	}
	if d.Denom == "" {
		return fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	return nil
}

// DenomInfo records which chain issues a denomination.
type DenomInfo struct {
	Denom Denom     `json:"denom"`
	Chain ChainName `json:"chain"`
}

// Supply tracks how much of a denomination was ever minted and burned.
type Supply struct {
	Minted *big.Int `json:"minted"`
	Burned *big.Int `json:"burned"`
}

// Outstanding is the value still held by accounts.
func (s Supply) Outstanding() *big.Int {
	return new(big.Int).Sub(s.Minted, s.Burned)
}

func validateChain(name ChainName) error {
	if name == "" || strings.ContainsAny(string(name), "/:") {
		return fmt.Errorf("%w: %q", ErrInvalidChain, name)
	}
	return nil
}
