package replay

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	solana "github.com/gagliardetto/solana-go"
)

// HashTransaction derives the deduplication hash for a transaction. It covers
// only the fee payer and the instruction list (program ids, account metas,
// data) so that identical instruction sets from any source collide. Nothing
// that changes after signing is included.
func HashTransaction(feePayer solana.PublicKey, instructions []solana.Instruction) string {
	h := sha256.New()
	h.Write(feePayer.Bytes())
	var n [4]byte
	for _, ix := range instructions {
		pid := ix.ProgramID()
		h.Write(pid.Bytes())
		accounts := ix.Accounts()
		binary.LittleEndian.PutUint32(n[:], uint32(len(accounts)))
		h.Write(n[:])
		for _, meta := range accounts {
			h.Write(meta.PublicKey.Bytes())
			flags := byte(0)
			if meta.IsSigner {
				flags |= 1
			}
			if meta.IsWritable {
				flags |= 2
			}
			h.Write([]byte{flags})
		}
		data, err := ix.Data()
		if err != nil {
			data = nil
		}
		binary.LittleEndian.PutUint32(n[:], uint32(len(data)))
		h.Write(n[:])
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
