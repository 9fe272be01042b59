package storage

import (
	"context"
	"errors"
)

// NoopUploader devolve erro indicando que não há backend configurado.
type NoopUploader struct{}

// GuardarAnexo sempre retorna erro, sinalizando que uploads estão
// indisponíveis nesta instalação.
func (NoopUploader) GuardarAnexo(ctx context.Context, anexo Anexo) (*UploadResult, error) {
	return nil, errors.New("storage: uploader não configurado")
}
