package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrDuplicateEmail indica cadastro com e-mail já existente.
	ErrDuplicateEmail = errors.New("email já cadastrado")
)
