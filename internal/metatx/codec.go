package metatx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/PracticalParticle/secureops/internal/canonical"
	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// Wire format for persisted envelopes. This schema round-trips exactly:
// decode(encode(s)) compares equal to s, including absent optional
// fields staying absent. Big integers travel as decimal strings to stay
// out of float territory in any JSON tooling that touches the store.
type signedJSON struct {
	Payload   payloadJSON `json:"payload"`
	Digest    string      `json:"digest"`
	Signature string      `json:"signature"`
	PublicKey string      `json:"public_key"`
}

type payloadJSON struct {
	ChainID     uint64          `json:"chain_id"`
	Contract    string          `json:"contract"`
	Selector    string          `json:"selector"`
	TypeID      string          `json:"operation_type"`
	OperationID uint64          `json:"operation_id"`
	Phase       string          `json:"phase"`
	Params      json.RawMessage `json:"params"`
	Value       string          `json:"value"`
	Deadline    int64           `json:"deadline"`
	MaxGasPrice string          `json:"max_gas_price"`
	Signer      string          `json:"signer"`
}

// Encode serializes a signed envelope for the pending store.
// Params are canonically encoded, so encoding the same envelope twice
// yields byte-identical output.
func Encode(s *Signed) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode envelope: nil envelope")
	}
	params := map[string]any(s.Payload.Params)
	if params == nil {
		params = map[string]any{}
	}
	rawParams, err := canonical.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode envelope params: %w", err)
	}

	out := signedJSON{
		Payload: payloadJSON{
			ChainID:     s.Payload.ChainID,
			Contract:    s.Payload.Contract.String(),
			Selector:    s.Payload.Selector.String(),
			TypeID:      s.Payload.TypeID.String(),
			OperationID: s.Payload.OperationID,
			Phase:       s.Payload.Phase.String(),
			Params:      rawParams,
			Value:       bigOrZero(s.Payload.Value).String(),
			Deadline:    s.Payload.Deadline,
			MaxGasPrice: bigOrZero(s.Payload.MaxGasPrice).String(),
			Signer:      s.Payload.Signer.String(),
		},
		Digest:    "0x" + hex.EncodeToString(s.Digest),
		Signature: "0x" + hex.EncodeToString(s.Signature),
		PublicKey: "0x" + hex.EncodeToString(s.PublicKey),
	}
	return json.Marshal(out)
}

// Decode parses a serialized envelope. Any malformed field is an error;
// the caller decides whether that means SerializationError (store) or
// rejection (broadcast input).
func Decode(data []byte) (*Signed, error) {
	var in signedJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	contract, err := chain.ParseAddress(in.Payload.Contract)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	signer, err := chain.ParseAddress(in.Payload.Signer)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	selector, err := parseSelector(in.Payload.Selector)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	typeID, err := optype.ParseTypeID(in.Payload.TypeID)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	phase, err := optype.ParsePhase(in.Payload.Phase)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var params Params
	if len(in.Payload.Params) > 0 {
		if err := params.UnmarshalJSON(in.Payload.Params); err != nil {
			return nil, fmt.Errorf("decode envelope params: %w", err)
		}
	} else {
		params = Params{}
	}

	value, err := parseBigDecimal(in.Payload.Value, "value")
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	maxGas, err := parseBigDecimal(in.Payload.MaxGasPrice, "max_gas_price")
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	digest, err := parseHexField(in.Digest, "digest")
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	sig, err := parseHexField(in.Signature, "signature")
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	pub, err := parseHexField(in.PublicKey, "public_key")
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	return &Signed{
		Payload: UnsignedPayload{
			ChainID:     in.Payload.ChainID,
			Contract:    contract,
			Selector:    selector,
			TypeID:      typeID,
			OperationID: in.Payload.OperationID,
			Phase:       phase,
			Params:      params,
			Value:       value,
			Deadline:    in.Payload.Deadline,
			MaxGasPrice: maxGas,
			Signer:      signer,
		},
		Digest:    digest,
		Signature: sig,
		PublicKey: pub,
	}, nil
}

func parseSelector(s string) (chain.Selector, error) {
	var sel chain.Selector
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h) != chain.SelectorLen*2 {
		return sel, fmt.Errorf("parse selector %q: want %d hex chars", s, chain.SelectorLen*2)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return sel, fmt.Errorf("parse selector %q: %w", s, err)
	}
	copy(sel[:], b)
	return sel, nil
}

func parseBigDecimal(s, field string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s %q: not a decimal integer", field, s)
	}
	return v, nil
}

func parseHexField(s, field string) ([]byte, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if h == "" {
		return nil, fmt.Errorf("parse %s: empty", field)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", field, err)
	}
	return b, nil
}
