package manifestacao

// transicoes é o grafo dirigido de status. Um caso nunca volta a um
// status anterior, e em_processamento não admite rejeição: uma vez
// iniciada a análise, só a conclusão encerra o caso.
var transicoes = map[Status][]Status{
	StatusPendente:        {StatusRecebida, StatusRejeitada},
	StatusRecebida:        {StatusEmProcessamento, StatusRejeitada},
	StatusEmProcessamento: {StatusConcluida},
	StatusConcluida:       {},
	StatusRejeitada:       {},
}

// ProximosStatus devolve as opções legais a partir do status atual; é
// exatamente o conjunto exibido ao atendente. Vazio quando terminal.
func ProximosStatus(atual Status) []Status {
	prox := transicoes[atual]
	out := make([]Status, len(prox))
	copy(out, prox)
	return out
}

// PodeTransicionar indica se a aresta atual->destino existe no grafo.
func PodeTransicionar(atual, destino Status) bool {
	for _, s := range transicoes[atual] {
		if s == destino {
			return true
		}
	}
	return false
}
