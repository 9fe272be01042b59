package util

import "time"

// Now retorna o horário atual em UTC. Centralizado para manter todos os
// timestamps persistidos no mesmo fuso.
func Now() time.Time {
	return time.Now().UTC()
}
