package api

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zstd"
)

// layersEncoder сжимает дампы слоёв; EncodeAll безопасен для параллельных вызовов
var layersEncoder = mustEncoder(zstd.WithEncoderLevel(zstd.SpeedDefault))

// mustEncoder создаёт zstd-кодировщик и паникует при неверных опциях
func mustEncoder(opts ...zstd.EOption) *zstd.Encoder {
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		panic(fmt.Sprintf("api: zstd encoder: %v", err))
	}
	return enc
}

// CellRequest - координаты клетки в теле запроса
type CellRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

func (r CellRequest) Cell() vec.Vec2 { return vec.Vec2{X: *r.X, Y: *r.Y} }

// HitRequest - удар по верхнему тайлу клетки длительностью Elapsed секунд
type HitRequest struct {
	CellRequest
	Elapsed float64 `json:"elapsed" binding:"required,gt=0"`
}

// PlaceRequest - установка тайла по имени; без Layer слой выбирается автоматически
type PlaceRequest struct {
	CellRequest
	Tile  string `json:"tile" binding:"required"`
	Layer *int   `json:"layer"`
}

// SeedRequest - необязательный сид; без него берётся сид сессии
type SeedRequest struct {
	Seed *int64 `json:"seed"`
}

// LocalRequest - переключение локальной карты
type LocalRequest struct {
	Map string `json:"map" binding:"required"`
}

// TileInfo - описание клетки в ответах API
type TileInfo struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Layer      int     `json:"layer"`
	ID         tile.ID `json:"id"`
	Name       string  `json:"name"`
	Solid      bool    `json:"solid"`
	Light      bool    `json:"light_passable"`
	Durability float64 `json:"durability"`
	Damage     float64 `json:"damage"`
	Fraction   float64 `json:"break_fraction"`
}

// MapStatus - состояние карты
type MapStatus struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Epoch       string `json:"epoch"`
	Seed        int64  `json:"seed"`
	Loading     bool   `json:"loading"`
	LastError   string `json:"last_error,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Layers      int    `json:"layers"`
	TileSize    int    `json:"tile_size"`
	PixelWidth  int    `json:"pixel_width"`
	PixelHeight int    `json:"pixel_height"`
	Revision    uint64 `json:"revision"`
	Damaged     int    `json:"damaged_cells"`
	Objects     int    `json:"objects"`
}

func queryInt(c *gin.Context, key string) (int, bool) {
	v, err := strconv.Atoi(c.Query(key))
	return v, err == nil
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	return v, err == nil
}

// handleSession возвращает состояние загрузки мира
func (rs *RestServer) handleSession(c *gin.Context) {
	ctx, cancel := rs.commandContext(c)
	defer cancel()

	var local string
	maps := make([]gin.H, 0)
	err := rs.session.Do(ctx, func(s *game.Session) error {
		local = s.Local().Name()
		for _, m := range s.Maps() {
			maps = append(maps, gin.H{
				"name":  m.Name(),
				"state": m.Grid.State().String(),
				"seed":  m.Grid.Seed(),
			})
		}
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}

	data := gin.H{
		"state":    rs.session.State().String(),
		"seed":     rs.session.Seed(),
		"progress": rs.session.Progress(),
		"local":    local,
		"maps":     maps,
	}
	if lerr := rs.session.LastError(); lerr != nil {
		data["last_error"] = lerr.Error()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние сессии", Data: data})
}

// handleReload перезапускает загрузку всех карт
func (rs *RestServer) handleReload(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	seed := rs.session.Seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	ctx, cancel := rs.commandContext(c)
	defer cancel()
	if err := rs.session.Reload(ctx, seed); err != nil {
		rs.fail(c, err)
		return
	}
	rs.log.Info("API: перезагрузка мира, seed=%d", seed)
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Загрузка запущена", Data: gin.H{"seed": seed}})
}

// handleSetLocal переключает локальную карту
func (rs *RestServer) handleSetLocal(c *gin.Context) {
	var req LocalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	ctx, cancel := rs.commandContext(c)
	defer cancel()
	if err := rs.session.Do(ctx, func(s *game.Session) error { return s.SetLocal(req.Map) }); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Локальная карта: " + req.Map})
}

// handleMapStatus возвращает состояние карты
func (rs *RestServer) handleMapStatus(c *gin.Context) {
	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()

	var st MapStatus
	err := rs.session.Do(ctx, func(s *game.Session) error {
		g := m.Grid
		pw, ph := g.PixelBounds()
		st = MapStatus{
			Name:        g.Name(),
			State:       g.State().String(),
			Epoch:       g.Epoch(),
			Seed:        g.Seed(),
			Loading:     g.Loading(),
			Width:       g.Width(),
			Height:      g.Height(),
			Layers:      g.Depth(),
			TileSize:    g.TileSize(),
			PixelWidth:  pw,
			PixelHeight: ph,
			Revision:    g.Revision(),
			Damaged:     g.Durability().Len(),
			Objects:     g.ObjectCount(),
		}
		if lerr := g.LastError(); lerr != nil {
			st.LastError = lerr.Error()
		}
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние карты", Data: st})
}

func (rs *RestServer) tileInfo(g *world.Grid, cell vec.Vec2, layer int) TileInfo {
	id := g.GetTile(cell, layer)
	if layer == world.LayerTop && g.InBounds(cell) {
		layer = g.TopLayer(cell)
	}
	t := g.Registry().ByID(id)
	info := TileInfo{
		X: cell.X, Y: cell.Y, Layer: layer,
		ID: id, Name: t.Name, Solid: t.Solid, Light: t.LightPassable, Durability: t.Durability,
	}
	if st, ok := g.Durability().State(cell); ok {
		info.Damage = st.Damage
		info.Fraction = g.Durability().Fraction(cell)
	}
	return info
}

// handleTile возвращает тайл клетки; layer по умолчанию - верхний
func (rs *RestServer) handleTile(c *gin.Context) {
	x, okX := queryInt(c, "x")
	y, okY := queryInt(c, "y")
	if !okX || !okY {
		badRequest(c, "Нужны целые параметры x и y")
		return
	}
	layer := world.LayerTop
	if c.Query("layer") != "" && c.Query("layer") != "top" {
		l, ok := queryInt(c, "layer")
		if !ok {
			badRequest(c, "layer: целое число или top")
			return
		}
		layer = l
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()

	var info TileInfo
	err := rs.session.Do(ctx, func(s *game.Session) error {
		info = rs.tileInfo(m.Grid, vec.Vec2{X: x, Y: y}, layer)
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл", Data: info})
}

// handleTileAt возвращает верхний тайл под точкой мира в пикселях
func (rs *RestServer) handleTileAt(c *gin.Context) {
	px, okX := queryFloat(c, "px")
	py, okY := queryFloat(c, "py")
	if !okX || !okY {
		badRequest(c, "Нужны параметры px и py")
		return
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()

	var id tile.ID
	var cell vec.Vec2
	var inside bool
	err := rs.session.Do(ctx, func(s *game.Session) error {
		p := vec.Vec2Float{X: px, Y: py}
		id = m.Grid.TileAtWorld(p)
		cell, inside = m.Grid.WorldToCell(p)
		return nil
	})
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл", Data: gin.H{
		"id":     id,
		"name":   rs.session.Registry().ByID(id).Name,
		"cell":   gin.H{"x": cell.X, "y": cell.Y},
		"inside": inside,
	}})
}

// handleCanMove проверяет, встанет ли прямоугольный коллайдер центром в точку px,py
func (rs *RestServer) handleCanMove(c *gin.Context) {
	px, okX := queryInt(c, "px")
	py, okY := queryInt(c, "py")
	w, okW := queryInt(c, "w")
	h, okH := queryInt(c, "h")
	if !okX || !okY || !okW || !okH || w <= 0 || h <= 0 {
		badRequest(c, "Нужны параметры px, py и положительные w, h")
		return
	}

	collider := physics.NewBoxCollider(w, h)
	var free bool
	if !rs.readyMap(c, func(g *world.Grid) error {
		free = physics.CanMoveToPosition(vec.Vec2{X: px, Y: py}, collider, g)
		return nil
	}) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Проверка коллизии", Data: gin.H{
		"free": free,
		"rect": collider.RectAt(vec.Vec2{X: px, Y: py}),
	}})
}

// readyMap выполняет fn, только если карта опубликована
func (rs *RestServer) readyMap(c *gin.Context, fn func(g *world.Grid) error) bool {
	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()

	ready := false
	err := rs.session.Do(ctx, func(s *game.Session) error {
		if m.Grid.State() != world.StateReady {
			return nil
		}
		ready = true
		return fn(m.Grid)
	})
	if err != nil {
		rs.fail(c, err)
		return false
	}
	if !ready {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Карта ещё не готова"})
		return false
	}
	return true
}

// handleMinimap отдаёт миникарту в PNG
func (rs *RestServer) handleMinimap(c *gin.Context) {
	var buf bytes.Buffer
	if !rs.readyMap(c, func(g *world.Grid) error { return g.WriteMinimapPNG(&buf) }) {
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handleLight строит маску освещения для пиксельного прямоугольника обзора
func (rs *RestServer) handleLight(c *gin.Context) {
	var view vec.Rect
	var ok [4]bool
	view.X, ok[0] = queryInt(c, "x")
	view.Y, ok[1] = queryInt(c, "y")
	view.W, ok[2] = queryInt(c, "w")
	view.H, ok[3] = queryInt(c, "h")
	if !ok[0] || !ok[1] || !ok[2] || !ok[3] {
		badRequest(c, "Нужны целые параметры x, y, w, h (пиксели)")
		return
	}

	m := mapFrom(c)
	var mask world.LightMask
	if !rs.readyMap(c, func(g *world.Grid) error {
		mask = *rs.session.Light(m, view)
		return nil
	}) {
		return
	}

	rows := make([]string, mask.Rect.H)
	var sb strings.Builder
	for y := 0; y < mask.Rect.H; y++ {
		sb.Reset()
		for x := 0; x < mask.Rect.W; x++ {
			if mask.Lit[y*mask.Rect.W+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		rows[y] = sb.String()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Маска освещения", Data: gin.H{
		"rect":      mask.Rect,
		"lit_count": mask.LitCount(),
		"rows":      rows,
	}})
}

// handleLayers отдаёт все слои карты: uint16 little-endian, индекс
// (layer*H + y)*W + x, сжатие zstd
func (rs *RestServer) handleLayers(c *gin.Context) {
	var ids []tile.ID
	var w, h, d int
	if !rs.readyMap(c, func(g *world.Grid) error {
		ids = g.LayerData()
		w, h, d = g.Width(), g.Height(), g.Depth()
		return nil
	}) {
		return
	}

	raw := make([]byte, 2*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(id))
	}
	c.Header("X-Map-Width", strconv.Itoa(w))
	c.Header("X-Map-Height", strconv.Itoa(h))
	c.Header("X-Map-Layers", strconv.Itoa(d))
	c.Data(http.StatusOK, "application/zstd", layersEncoder.EncodeAll(raw, nil))
}

// handleRegenerate перегенерирует карту
func (rs *RestServer) handleRegenerate(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	seed := rs.session.Seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()
	if err := rs.session.Regenerate(ctx, m.Name(), seed); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Генерация запущена", Data: gin.H{
		"map":  m.Name(),
		"seed": seed,
	}})
}

// handleHit бьёт верхний тайл клетки
func (rs *RestServer) handleHit(c *gin.Context) {
	var req HitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()
	res, err := rs.session.Hit(ctx, m.Name(), req.Cell(), req.Elapsed)
	if err != nil {
		rs.fail(c, err)
		return
	}
	msg := "Урон нанесён"
	if res.Broken {
		msg = fmt.Sprintf("Тайл разрушен, выпало: %s", rs.session.Registry().ByID(res.Dropped).Name)
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: msg, Data: res})
}

// handlePlace ставит тайл по имени
func (rs *RestServer) handlePlace(c *gin.Context) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	id, ok := rs.session.Registry().IDByName(req.Tile)
	if !ok {
		badRequest(c, "Неизвестный тайл: "+req.Tile)
		return
	}
	layer := world.LayerAuto
	if req.Layer != nil {
		layer = *req.Layer
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()
	if err := rs.session.Place(ctx, m.Name(), req.Cell(), id, layer); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл установлен"})
}

// handleRemove снимает верхний тайл клетки
func (rs *RestServer) handleRemove(c *gin.Context) {
	var req CellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}

	m := mapFrom(c)
	ctx, cancel := rs.commandContext(c)
	defer cancel()
	if err := rs.session.Remove(ctx, m.Name(), req.Cell()); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл снят"})
}
