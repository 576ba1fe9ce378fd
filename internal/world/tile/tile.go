package tile

import "image/color"

// ID - идентификатор типа тайла. 0 всегда означает пустую клетку слоя.
type ID uint16

// Empty - пустая клетка (слой свободен)
const Empty ID = 0

// Зарезервированные имена, регистрируемые при создании реестра
const (
	EmptyName   = "empty"
	UnknownName = "debug"
)

// CoverKind задаёт, во что превращается тайл, когда поверх него что-то строят
type CoverKind uint8

const (
	CoverKeep    CoverKind = iota // остаётся как есть
	CoverReplace                  // заменяется на CoverRule.Into
	CoverRandom                   // заменяется на случайный из CoverRule.Variants
)

// CoverRule - именованная стратегия "covered-by" вместо произвольного замыкания
type CoverRule struct {
	Kind     CoverKind
	Into     string
	Variants []string
}

// BreakKind задаёт, что выпадает при разрушении тайла
type BreakKind uint8

const (
	BreakSelf    BreakKind = iota // выпадает сам тайл
	BreakInto                     // выпадает BreakRule.Into
	BreakNothing                  // ничего не выпадает
)

// BreakRule - именованная стратегия "break yield"
type BreakRule struct {
	Kind BreakKind
	Into string
}

// Tile описывает свойства типа тайла. Экземпляры принадлежат Registry
// и после регистрации только читаются.
type Tile struct {
	ID            ID
	Name          string
	Solid         bool
	LightPassable bool
	Durability    float64 // 0 - тайл нельзя разрушить
	MapColor      color.RGBA
	Cover         CoverRule
	Break         BreakRule

	coverInto     ID
	coverVariants []ID
	breakInto     ID
}

// Breakable сообщает, можно ли разрушить тайл ударами
func (t *Tile) Breakable() bool {
	return t.Durability > 0
}
