package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	becdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Assinatura compacta secp256k1 (65 bytes, formato recuperável). O endereço do
// owner é derivado da chave pública recuperada, então a assinatura sozinha
// prova a posse da conta.

func permitDigest(owner, spender string, value *big.Int, nonce uint64, deadline time.Time) []byte {
	msg := fmt.Sprintf("permit|%s|%s|%s|%d|%d", owner, spender, value.String(), nonce, deadline.Unix())
	h := sha256.Sum256([]byte(msg))
	return h[:]
}

// AddressFromPubKey deriva o endereço da conta: últimos 20 bytes do
// sha256 da chave pública comprimida, em hex com prefixo 0x.
func AddressFromPubKey(pub *btcec.PublicKey) string {
	sum := sha256.Sum256(pub.SerializeCompressed())
	return "0x" + hex.EncodeToString(sum[12:])
}

func verifyPermit(owner, spender string, value *big.Int, nonce uint64, deadline time.Time, sig []byte) error {
	digest := permitDigest(owner, spender, value, nonce, deadline)
	pub, _, err := becdsa.RecoverCompact(sig, digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if AddressFromPubKey(pub) != owner {
		return ErrBadSignature
	}
	return nil
}

// SignPermit produz a assinatura que Permit aceita. Usado pelos testes e por
// clientes que montam a aprovação offline.
func SignPermit(priv *btcec.PrivateKey, spender string, value *big.Int, nonce uint64, deadline time.Time) []byte {
	owner := AddressFromPubKey(priv.PubKey())
	digest := permitDigest(owner, spender, value, nonce, deadline)
	return becdsa.SignCompact(priv, digest, true)
}
