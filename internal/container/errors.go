package container

import "github.com/tvpio/tvpp/internal/tvperr"

func errTruncatedHeader(have int) error {
	return tvperr.New(tvperr.KindTruncatedChunk, "node header needs %d bytes, have %d", HeaderSize, have)
}

func errInvalidSignature(sig [6]byte) error {
	return tvperr.New(tvperr.KindInvalidSignature, "node signature % X matches neither accepted signature", sig[:])
}
