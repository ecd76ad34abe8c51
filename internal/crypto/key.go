package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"

	"github.com/screa/range-scanner/pkg/types"
)

const (
	// KeyLen is the width of a private key in bytes.
	KeyLen = 32

	// KeyHexLen is the width of an encoded private key.
	KeyHexLen = 2 * KeyLen
)

// Chains
const (
	ChainBitcoin  = "btc"
	ChainEthereum = "eth"
)

// Errors
var (
	ErrDecode       = errors.New("malformed private key encoding")
	ErrOutOfDomain  = errors.New("private key outside the secp256k1 scalar domain")
	ErrUnknownChain = errors.New("unknown chain")
	ErrUnknownNet   = errors.New("unknown network")
	ErrBadTarget    = errors.New("invalid target address")
)

// EncodeKey renders k as a zero-padded 64 character lowercase hex string.
func EncodeKey(k *uint256.Int) string {
	b := k.Bytes32()
	return hex.EncodeToString(b[:])
}

// EncodeKeyInto is EncodeKey writing into a caller-owned buffer, for use in
// hot loops. dst must be KeyHexLen bytes.
func EncodeKeyInto(dst []byte, k *uint256.Int) {
	b := k.Bytes32()
	hex.Encode(dst, b[:])
}

// parsePrivateKey decodes keyHex and checks 0 < k < n.
func parsePrivateKey(keyHex string) (*btcec.PrivateKey, error) {
	if len(keyHex) != KeyHexLen {
		return nil, fmt.Errorf("%w: got %d hex chars, want %d", ErrDecode, len(keyHex), KeyHexLen)
	}
	var raw [KeyLen]byte
	if _, err := hex.Decode(raw[:], []byte(keyHex)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetBytes(&raw); overflow != 0 || scalar.IsZero() {
		return nil, ErrOutOfDomain
	}

	return secp256k1.NewPrivateKey(&scalar), nil
}

// NetParams maps a network name to its chain parameters.
func NetParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "mainnet", "main", "":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNet, network)
	}
}

// NewDeriver returns the deriver for chain. network and compressed only
// apply to bitcoin.
func NewDeriver(chain, network string, compressed bool) (types.AddressDeriver, error) {
	switch strings.ToLower(chain) {
	case ChainBitcoin:
		params, err := NetParams(network)
		if err != nil {
			return nil, err
		}
		return &BitcoinDeriver{Params: params, Compressed: compressed}, nil
	case ChainEthereum:
		return &EthereumDeriver{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
}

// CanonicalTarget validates target for chain/network and returns it in the
// exact form DeriveAddress produces, so workers can compare strings.
func CanonicalTarget(chain, network, target string) (string, error) {
	target = strings.TrimSpace(target)
	switch strings.ToLower(chain) {
	case ChainBitcoin:
		params, err := NetParams(network)
		if err != nil {
			return "", err
		}
		addr, err := btcutil.DecodeAddress(target, params)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadTarget, err)
		}
		if _, ok := addr.(*btcutil.AddressPubKeyHash); !ok {
			return "", fmt.Errorf("%w: %s is not a P2PKH address", ErrBadTarget, target)
		}
		if !addr.IsForNet(params) {
			return "", fmt.Errorf("%w: %s is not a %s address", ErrBadTarget, target, params.Name)
		}
		return addr.EncodeAddress(), nil
	case ChainEthereum:
		addr, err := parseEthereumAddress(target)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadTarget, err)
		}
		return checksumAddress(addr), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
}
