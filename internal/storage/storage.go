package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/util"
)

// MaxAnexoBytes limita o tamanho de cada arquivo anexado a uma manifestação.
const MaxAnexoBytes = 10 << 20 // 10 MiB

var (
	// ErrAnexoGrande indica arquivo acima de MaxAnexoBytes.
	ErrAnexoGrande = errors.New("storage: anexo excede o limite de 10MB")
	// ErrAnexoVazio indica upload sem conteúdo.
	ErrAnexoVazio = errors.New("storage: anexo vazio")
)

// Anexo é o arquivo enviado junto a uma manifestação.
type Anexo struct {
	ManifestacaoID uuid.UUID
	NomeOriginal   string
	ContentType    string
	Body           []byte
}

// Validar confere vínculo e tamanho antes do envio.
func (a Anexo) Validar() error {
	if a.ManifestacaoID == uuid.Nil {
		return errors.New("storage: anexo sem manifestação")
	}
	if len(a.Body) == 0 {
		return ErrAnexoVazio
	}
	if len(a.Body) > MaxAnexoBytes {
		return ErrAnexoGrande
	}
	return nil
}

// ContentTypeEfetivo devolve o content type informado ou o padrão binário.
func (a Anexo) ContentTypeEfetivo() string {
	if ct := strings.TrimSpace(a.ContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Chave monta o caminho do objeto sob o prefixo da manifestação. Do nome
// original só a extensão é aproveitada; o restante vira um identificador
// novo, para que nomes de arquivo do cidadão nunca cheguem ao bucket.
func (a Anexo) Chave() string {
	ext := strings.ToLower(path.Ext(a.NomeOriginal))
	return fmt.Sprintf("anexos/%s/%s%s", a.ManifestacaoID, util.NewID(), ext)
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader guarda anexos de manifestações em um backend de blobs.
type Uploader interface {
	GuardarAnexo(ctx context.Context, anexo Anexo) (*UploadResult, error)
}
