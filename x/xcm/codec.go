package xcm

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x/ledger"
	"golang.org/x/crypto/blake2b"
)

// Messages use the protobuf wire format:
//
//	message Message     { repeated Instruction instructions = 1; }
//	message Instruction { oneof kind { ... } }  // field number is the kind
//	message Assets      { repeated Asset assets = 1; }
//	message Asset       { string id = 1; bytes amount = 2; }  // big endian
//	message BuyExecution { Asset fees = 1; WeightLimit limit = 2; }
//	message WeightLimit { bool unlimited = 1; Weight limit = 2; }
//	message Weight      { uint64 ref_time = 1; uint64 proof_size = 2; }
//	message DepositAsset { AssetFilter filter = 1; bytes beneficiary = 2; }
//	message AssetFilter { bool all = 1; repeated Asset definite = 2; }
//
// RefundSurplus and ClearOrigin have an empty body.

// Encode serializes a message.
func Encode(m Message) ([]byte, error) {
	buf := proto.NewBuffer(nil)
	for i, instr := range m.Instructions {
		raw, err := encodeInstruction(instr)
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
		if err := putBytes(buf, 1, raw); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode parses a message created by Encode.
func Decode(raw []byte) (Message, error) {
	var m Message
	err := eachField(raw, func(f field) error {
		if f.num != 1 || f.wire != proto.WireBytes {
			return errors.Wrapf(errors.ErrInvalidMsg, "unexpected message field %d", f.num)
		}
		instr, err := decodeInstruction(f.data)
		if err != nil {
			return errors.Wrapf(err, "instruction %d", len(m.Instructions))
		}
		m.Instructions = append(m.Instructions, instr)
		return nil
	})
	return m, err
}

// Hash returns the blake2b-256 digest of the encoded message. It
// identifies the message in logs and in the asset trap.
func Hash(m Message) ([]byte, error) {
	raw, err := Encode(m)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(raw)
	return sum[:], nil
}

func encodeInstruction(instr Instruction) ([]byte, error) {
	body := proto.NewBuffer(nil)
	var err error
	switch i := instr.(type) {
	case *ReserveAssetDeposited:
		err = putAssets(body, 1, i.Assets)
	case *WithdrawAsset:
		err = putAssets(body, 1, i.Assets)
	case *BuyExecution:
		if err = putBytes(body, 1, encodeAsset(i.Fees)); err == nil {
			err = putBytes(body, 2, encodeWeightLimit(i.WeightLimit))
		}
	case *DepositAsset:
		if err = putBytes(body, 1, encodeFilter(i.Filter)); err == nil {
			err = putBytes(body, 2, i.Beneficiary)
		}
	case *RefundSurplus, *ClearOrigin:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidType, "instruction %T", instr)
	}
	if err != nil {
		return nil, err
	}
	out := proto.NewBuffer(nil)
	if err := putBytes(out, uint64(instr.Kind()), body.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeInstruction(raw []byte) (Instruction, error) {
	var instr Instruction
	err := eachField(raw, func(f field) error {
		if instr != nil {
			return errors.Wrap(errors.ErrInvalidMsg, "more than one instruction kind")
		}
		if f.wire != proto.WireBytes {
			return errors.Wrapf(errors.ErrInvalidMsg, "instruction field %d", f.num)
		}
		var err error
		instr, err = decodeBody(InstructionKind(f.num), f.data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if instr == nil {
		return nil, errors.Wrap(errors.ErrInvalidMsg, "empty instruction")
	}
	return instr, nil
}

func decodeBody(kind InstructionKind, raw []byte) (Instruction, error) {
	switch kind {
	case KindReserveAssetDeposited:
		assets, err := decodeAssets(raw)
		return &ReserveAssetDeposited{Assets: assets}, err
	case KindWithdrawAsset:
		assets, err := decodeAssets(raw)
		return &WithdrawAsset{Assets: assets}, err
	case KindBuyExecution:
		var i BuyExecution
		err := eachField(raw, func(f field) error {
			var err error
			switch f.num {
			case 1:
				i.Fees, err = decodeAsset(f.data)
			case 2:
				i.WeightLimit, err = decodeWeightLimit(f.data)
			}
			return err
		})
		return &i, err
	case KindDepositAsset:
		var i DepositAsset
		err := eachField(raw, func(f field) error {
			var err error
			switch f.num {
			case 1:
				i.Filter, err = decodeFilter(f.data)
			case 2:
				i.Beneficiary = settle.Address(append([]byte(nil), f.data...))
			}
			return err
		})
		return &i, err
	case KindRefundSurplus:
		return &RefundSurplus{}, nil
	case KindClearOrigin:
		return &ClearOrigin{}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidMsg, "unknown instruction kind %d", kind)
	}
}

func putAssets(buf *proto.Buffer, num uint64, assets []Asset) error {
	for _, a := range assets {
		if err := putBytes(buf, num, encodeAsset(a)); err != nil {
			return err
		}
	}
	return nil
}

func encodeAsset(a Asset) []byte {
	buf := proto.NewBuffer(nil)
	// Writing into a memory buffer does not fail.
	_ = buf.EncodeVarint(1<<3 | proto.WireBytes)
	_ = buf.EncodeStringBytes(string(a.ID))
	_ = putBytes(buf, 2, a.Amount.Bytes())
	return buf.Bytes()
}

func decodeAssets(raw []byte) ([]Asset, error) {
	var assets []Asset
	err := eachField(raw, func(f field) error {
		if f.num != 1 {
			return nil
		}
		a, err := decodeAsset(f.data)
		if err != nil {
			return err
		}
		assets = append(assets, a)
		return nil
	})
	return assets, err
}

func decodeAsset(raw []byte) (Asset, error) {
	var a Asset
	err := eachField(raw, func(f field) error {
		var err error
		switch f.num {
		case 1:
			a.ID = ledger.AssetID(f.data)
		case 2:
			a.Amount, err = coin.AmountFromBytes(f.data)
		}
		return err
	})
	return a, err
}

func encodeWeight(w Weight) []byte {
	buf := proto.NewBuffer(nil)
	_ = putVarint(buf, 1, w.RefTime)
	_ = putVarint(buf, 2, w.ProofSize)
	return buf.Bytes()
}

func decodeWeight(raw []byte) (Weight, error) {
	var w Weight
	err := eachField(raw, func(f field) error {
		switch f.num {
		case 1:
			w.RefTime = f.varint
		case 2:
			w.ProofSize = f.varint
		}
		return nil
	})
	return w, err
}

func encodeWeightLimit(l WeightLimit) []byte {
	buf := proto.NewBuffer(nil)
	_ = putBool(buf, 1, l.Unlimited)
	_ = putBytes(buf, 2, encodeWeight(l.Limit))
	return buf.Bytes()
}

func decodeWeightLimit(raw []byte) (WeightLimit, error) {
	var l WeightLimit
	err := eachField(raw, func(f field) error {
		var err error
		switch f.num {
		case 1:
			l.Unlimited = f.varint != 0
		case 2:
			l.Limit, err = decodeWeight(f.data)
		}
		return err
	})
	return l, err
}

func encodeFilter(af AssetFilter) []byte {
	buf := proto.NewBuffer(nil)
	_ = putBool(buf, 1, af.All)
	_ = putAssets(buf, 2, af.Definite)
	return buf.Bytes()
}

func decodeFilter(raw []byte) (AssetFilter, error) {
	var af AssetFilter
	err := eachField(raw, func(f field) error {
		switch f.num {
		case 1:
			af.All = f.varint != 0
		case 2:
			a, err := decodeAsset(f.data)
			if err != nil {
				return err
			}
			af.Definite = append(af.Definite, a)
		}
		return nil
	})
	return af, err
}

func putBytes(buf *proto.Buffer, num uint64, data []byte) error {
	if err := buf.EncodeVarint(num<<3 | proto.WireBytes); err != nil {
		return err
	}
	return buf.EncodeRawBytes(data)
}

func putVarint(buf *proto.Buffer, num, v uint64) error {
	if v == 0 {
		return nil
	}
	if err := buf.EncodeVarint(num<<3 | proto.WireVarint); err != nil {
		return err
	}
	return buf.EncodeVarint(v)
}

func putBool(buf *proto.Buffer, num uint64, v bool) error {
	if !v {
		return nil
	}
	return putVarint(buf, num, 1)
}

type field struct {
	num    uint64
	wire   uint64
	varint uint64
	data   []byte
}

// eachField calls fn for every field of an encoded message. Only varint
// and length delimited fields are supported.
func eachField(raw []byte, fn func(field) error) error {
	for len(raw) > 0 {
		key, n := proto.DecodeVarint(raw)
		if n == 0 {
			return errors.Wrap(errors.ErrInvalidMsg, "malformed field key")
		}
		raw = raw[n:]
		f := field{num: key >> 3, wire: key & 7}
		if f.num == 0 {
			return errors.Wrap(errors.ErrInvalidMsg, "field number zero")
		}
		switch f.wire {
		case proto.WireVarint:
			v, n := proto.DecodeVarint(raw)
			if n == 0 {
				return errors.Wrap(errors.ErrInvalidMsg, "malformed varint")
			}
			f.varint = v
			raw = raw[n:]
		case proto.WireBytes:
			l, n := proto.DecodeVarint(raw)
			if n == 0 || uint64(len(raw)-n) < l {
				return errors.Wrap(errors.ErrInvalidMsg, "malformed length")
			}
			f.data = raw[n : n+int(l)]
			raw = raw[n+int(l):]
		default:
			return errors.Wrapf(errors.ErrInvalidMsg, "unsupported wire type %d", f.wire)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
