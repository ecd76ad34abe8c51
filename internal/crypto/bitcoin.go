package crypto

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// BitcoinDeriver derives P2PKH addresses from private keys.
type BitcoinDeriver struct {
	Params     *chaincfg.Params
	Compressed bool
}

// DeriveAddress converts a 64 char hex private key to a P2PKH address
func (d *BitcoinDeriver) DeriveAddress(keyHex string) (string, error) {
	privateKey, err := parsePrivateKey(keyHex)
	if err != nil {
		return "", err
	}

	publicKey := privateKey.PubKey()

	var serialized []byte
	if d.Compressed {
		serialized = publicKey.SerializeCompressed()
	} else {
		serialized = publicKey.SerializeUncompressed()
	}

	pubKeyHash := btcutil.Hash160(serialized)
	address, err := btcutil.NewAddressPubKeyHash(pubKeyHash, d.Params)
	if err != nil {
		return "", err
	}

	return address.EncodeAddress(), nil
}
