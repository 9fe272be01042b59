package notification

import (
	"time"

	"github.com/google/uuid"
)

// Evento é um fato notificável ligado a uma manifestação: uma resposta
// pública da equipe, uma mudança de status ou, para administradores,
// uma nova manifestação na fila. Eventos são derivados do histórico, não
// armazenados: a marca d'água do usuário é o único estado.
type Evento struct {
	ManifestacaoID uuid.UUID  `json:"manifestacao_id"`
	Protocolo      string     `json:"protocolo"`
	Resumo         string     `json:"resumo"`
	NovoStatus     *string    `json:"novo_status,omitempty"`
	CriadoEm       time.Time  `json:"criado_em"`
}

// Resultado agrupa os eventos não vistos e o total.
type Resultado struct {
	Eventos []Evento `json:"notificacoes"`
	Total   int      `json:"total"`
}
