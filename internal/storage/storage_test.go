package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAnexoChave(t *testing.T) {
	id := uuid.New()
	anexo := Anexo{ManifestacaoID: id, NomeOriginal: "FOTO do Buraco.JPG"}

	chave := anexo.Chave()
	prefixo := "anexos/" + id.String() + "/"
	if !strings.HasPrefix(chave, prefixo) {
		t.Fatalf("chave = %q, esperado prefixo %q", chave, prefixo)
	}
	if !strings.HasSuffix(chave, ".jpg") {
		t.Fatalf("chave = %q, esperada extensão em minúsculas .jpg", chave)
	}
	if strings.Contains(chave, "FOTO") || strings.Contains(chave, "Buraco") {
		t.Fatalf("chave %q não pode carregar o nome original do arquivo", chave)
	}

	if outra := anexo.Chave(); outra == chave {
		t.Fatalf("chaves repetidas para o mesmo anexo: %q", chave)
	}
}

func TestAnexoValidar(t *testing.T) {
	id := uuid.New()

	if err := (Anexo{ManifestacaoID: id, Body: []byte("conteudo")}).Validar(); err != nil {
		t.Fatalf("anexo válido rejeitado: %v", err)
	}

	if err := (Anexo{ManifestacaoID: id}).Validar(); !errors.Is(err, ErrAnexoVazio) {
		t.Fatalf("err = %v, esperado ErrAnexoVazio", err)
	}

	grande := Anexo{ManifestacaoID: id, Body: make([]byte, MaxAnexoBytes+1)}
	if err := grande.Validar(); !errors.Is(err, ErrAnexoGrande) {
		t.Fatalf("err = %v, esperado ErrAnexoGrande", err)
	}

	semVinculo := Anexo{Body: []byte("conteudo")}
	if err := semVinculo.Validar(); err == nil {
		t.Fatal("anexo sem manifestação deveria ser rejeitado")
	}
}

func TestAnexoContentTypeEfetivo(t *testing.T) {
	anexo := Anexo{ContentType: "image/png"}
	if got := anexo.ContentTypeEfetivo(); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}

	anexo.ContentType = "  "
	if got := anexo.ContentTypeEfetivo(); got != "application/octet-stream" {
		t.Fatalf("content type padrão = %q", got)
	}
}

func TestNoopUploaderRecusaEnvio(t *testing.T) {
	_, err := NoopUploader{}.GuardarAnexo(context.Background(), Anexo{
		ManifestacaoID: uuid.New(),
		Body:           []byte("conteudo"),
	})
	if err == nil {
		t.Fatal("uploader sem backend deveria falhar")
	}
}

func TestGuardarAnexoValidaAntesDeEnviar(t *testing.T) {
	uploader, err := NewS3Uploader(S3Config{
		Endpoint:  "https://storage.example.com",
		Region:    "auto",
		Bucket:    "ouvidoria",
		AccessKey: "chave",
		SecretKey: "segredo",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = uploader.GuardarAnexo(context.Background(), Anexo{ManifestacaoID: uuid.New()})
	if !errors.Is(err, ErrAnexoVazio) {
		t.Fatalf("err = %v, esperado ErrAnexoVazio antes de qualquer requisição", err)
	}
}
