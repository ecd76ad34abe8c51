package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLen is the size of an ethereum address in bytes.
const AddressLen = 20

// EthereumDeriver derives EIP-55 checksummed ethereum addresses from private
// keys: the last 20 bytes of keccak256 over the uncompressed public key.
type EthereumDeriver struct{}

// DeriveAddress converts a 64 char hex private key to an ethereum address
func (d *EthereumDeriver) DeriveAddress(keyHex string) (string, error) {
	privateKey, err := parsePrivateKey(keyHex)
	if err != nil {
		return "", err
	}

	// Drop the 0x04 uncompressed point marker.
	hash := keccak256(privateKey.PubKey().SerializeUncompressed()[1:])

	var addr [AddressLen]byte
	copy(addr[:], hash[len(hash)-AddressLen:])
	return checksumAddress(addr), nil
}

// parseEthereumAddress decodes a 40 digit hex address, with or without 0x,
// ignoring letter case.
func parseEthereumAddress(s string) ([AddressLen]byte, error) {
	var addr [AddressLen]byte

	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(h) != 2*AddressLen {
		return addr, fmt.Errorf("invalid address length: got %d hex chars, want %d",
			len(h), 2*AddressLen)
	}
	if _, err := hex.Decode(addr[:], []byte(h)); err != nil {
		return addr, fmt.Errorf("invalid address hex: %w", err)
	}
	return addr, nil
}

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	return h.Sum(nil)
}

// checksumAddress renders addr in EIP-55 mixed case. A letter is upper case
// when the matching nibble of keccak256(lowercase hex) is 8 or more.
func checksumAddress(addr [AddressLen]byte) string {
	var out [2 + 2*AddressLen]byte
	out[0], out[1] = '0', 'x'

	digits := out[2:]
	hex.Encode(digits, addr[:])
	hash := keccak256(digits)

	for i, c := range digits {
		nibble := hash[i/2] >> 4
		if i%2 == 1 {
			nibble = hash[i/2] & 0x0f
		}
		if c >= 'a' && nibble >= 8 {
			digits[i] = c - 'a' + 'A'
		}
	}
	return string(out[:])
}
