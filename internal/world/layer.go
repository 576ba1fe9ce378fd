package world

// Слои клетки. Слой 0 - пол, после генерации всегда непустой.
// Слои выше держат стены, горы и постройки и могут быть пустыми.
const (
	LayerFloor = 0
	LayerWall  = 1

	// LayerTop в GetTile означает верхний непустой слой (или слой 0)
	LayerTop = -1
	// LayerAuto в SetTile означает первый пустой слой снизу,
	// а если пустых нет - верхний слой
	LayerAuto = -1
)
