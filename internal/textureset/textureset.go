// Package textureset управляет до четырёх текстур земли на чанк и стеком их
// альфа-масок 64x64: добавление и удаление слоёв, рисование кистью с
// перераспределением покрытия, преобразования между «большой» и каскадной альфой.
//
// TextureSet не потокобезопасен: все операции над одним набором выполняются
// в одном потоке редактора.
package textureset

import (
	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/texture"
)

// Refs ведёт учёт ссылок на общие текстуры (обычно *texture.Cache)
type Refs interface {
	Retain(h texture.Handle)
	Release(h texture.Handle)
}

// Observer получает уведомления об изменении состава слоёв
type Observer interface {
	LayerAdded(tex texture.Handle)
	LayerErased(tex texture.Handle)
	SlotExhausted(tex texture.Handle)
}

// Option настраивает TextureSet
type Option func(*TextureSet)

// WithSink задаёт приёмник загрузки альфы в GPU
func WithSink(s Sink) Option {
	return func(ts *TextureSet) { ts.sink = s }
}

// WithRefs включает учёт ссылок на текстуры
func WithRefs(r Refs) Option {
	return func(ts *TextureSet) { ts.refs = r }
}

// WithObserver подключает наблюдателя за слоями
func WithObserver(o Observer) Option {
	return func(ts *TextureSet) { ts.observer = o }
}

// TextureSet реестр слоёв чанка и стек альфа-плоскостей
type TextureSet struct {
	layers   []Layer
	alphaTex [alphamap.Samples * 3]byte

	sink     Sink
	refs     Refs
	observer Observer
}

// New создаёт пустой набор текстур
func New(opts ...Option) *TextureSet {
	ts := &TextureSet{
		layers: make([]Layer, 0, MaxLayers),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Init заполняет набор слоями, прочитанными из файла чанка. Если bigAlpha == false,
// плоскости считаются каскадными и переводятся в «большую» альфу для редактирования.
// Слои сверх MaxLayers отбрасываются.
func (ts *TextureSet) Init(layers []LayerData, bigAlpha bool) {
	ts.EraseAll()

	if len(layers) > MaxLayers {
		logging.Warn("textureset: chunk declares %d layers, keeping %d", len(layers), MaxLayers)
		layers = layers[:MaxLayers]
	}

	for k, data := range layers {
		l := Layer{
			Texture: data.Texture,
			Flags:   data.Flags,
			Effect:  data.Effect,
		}
		if k > 0 {
			l.kind = AlphaExplicit
			if data.Alpha != nil {
				l.alpha = *data.Alpha
			}
		}
		ts.layers = append(ts.layers, l)
		ts.retain(l.Texture)
	}

	// для редактирования и отрисовки всегда используется большая альфа
	if !bigAlpha && len(ts.layers) > 1 {
		ts.ToBigAlpha()
		return
	}
	ts.generateAlphaTex()
}

// NumLayers возвращает число активных слоёв
func (ts *TextureSet) NumLayers() int {
	return len(ts.layers)
}

func (ts *TextureSet) valid(id int) bool {
	return id >= 0 && id < len(ts.layers)
}

// Flag возвращает флаги слоя id
func (ts *TextureSet) Flag(id int) Flags {
	if !ts.valid(id) {
		return 0
	}
	return ts.layers[id].Flags
}

// Effect возвращает идентификатор эффекта слоя id
func (ts *TextureSet) Effect(id int) uint32 {
	if !ts.valid(id) {
		return 0
	}
	return ts.layers[id].Effect
}

// SetEffect задаёт идентификатор эффекта слоя id
func (ts *TextureSet) SetEffect(id int, effect uint32) bool {
	if !ts.valid(id) {
		return false
	}
	ts.layers[id].Effect = effect
	return true
}

// IsAnimated возвращает true, если у слоя включена анимация
func (ts *TextureSet) IsAnimated(id int) bool {
	return ts.valid(id) && ts.layers[id].Flags&FlagAnimate != 0
}

// Texture возвращает текстуру слоя id
func (ts *TextureSet) Texture(id int) (texture.Handle, bool) {
	if !ts.valid(id) {
		return texture.Handle{}, false
	}
	return ts.layers[id].Texture, true
}

// Filename возвращает имя файла текстуры слоя id
func (ts *TextureSet) Filename(id int) string {
	if !ts.valid(id) {
		return ""
	}
	return ts.layers[id].Texture.Filename()
}

// Layers возвращает копию записей слоёв
func (ts *TextureSet) Layers() []Layer {
	out := make([]Layer, len(ts.layers))
	copy(out, ts.layers)
	return out
}

// Find возвращает индекс слоя с текстурой tex или -1
func (ts *TextureSet) Find(tex texture.Handle) int {
	for k := range ts.layers {
		if ts.layers[k].Texture == tex {
			return k
		}
	}
	return -1
}

// ChangeFlag добавляет или снимает флаги у слоя с текстурой tex.
// При добавлении битов скорости/направления прежние значения сбрасываются.
func (ts *TextureSet) ChangeFlag(tex texture.Handle, flag Flags, add bool) bool {
	id := ts.Find(tex)
	if id < 0 {
		return false
	}

	l := &ts.layers[id]
	if add {
		if flag&flagMotion != 0 {
			l.Flags &^= flagMotion
		}
		l.Flags |= flag
	} else {
		l.Flags &^= flag
	}
	return true
}

// Alpha возвращает покрытие слоя id в сэмпле offset. Для базового слоя
// покрытие вычисляется как остаток от остальных.
func (ts *TextureSet) Alpha(id, offset int) uint8 {
	if !ts.valid(id) || offset < 0 || offset >= alphamap.Samples {
		return 0
	}
	if id == 0 {
		return clampByte(ts.residual(offset))
	}
	return ts.layers[id].alpha[offset]
}

// Plane возвращает полную плоскость покрытия слоя id, для базового: вычисленную
func (ts *TextureSet) Plane(id int) (alphamap.Plane, bool) {
	if !ts.valid(id) {
		return alphamap.Plane{}, false
	}
	if id > 0 {
		return ts.layers[id].alpha, true
	}

	var p alphamap.Plane
	for i := range p {
		p[i] = clampByte(ts.residual(i))
	}
	return p, true
}

// SetAlpha задаёт покрытие явного слоя id в сэмпле offset
func (ts *TextureSet) SetAlpha(id, offset int, value uint8) bool {
	if id < 1 || !ts.valid(id) || offset < 0 || offset >= alphamap.Samples {
		return false
	}
	ts.layers[id].alpha[offset] = value
	ts.alphaTex[offset*3+id-1] = value
	return true
}

// SetAlphaPlane заменяет плоскость явного слоя id целиком
func (ts *TextureSet) SetAlphaPlane(id int, plane *alphamap.Plane) bool {
	if id < 1 || !ts.valid(id) || plane == nil {
		return false
	}
	ts.layers[id].alpha = *plane
	for i, v := range plane {
		ts.alphaTex[i*3+id-1] = v
	}
	return true
}

// residual покрытие базового слоя: 255 минус сумма явных слоёв
func (ts *TextureSet) residual(offset int) float64 {
	v := 255.0
	for k := 1; k < len(ts.layers); k++ {
		v -= float64(ts.layers[k].alpha[offset])
	}
	return v
}

// AddTexture добавляет слой с текстурой tex. Возвращает индекс нового слоя и true.
// Если текстура уже есть: её индекс и false; если мест нет, -1 и false.
func (ts *TextureSet) AddTexture(tex texture.Handle) (int, bool) {
	if id := ts.Find(tex); id >= 0 {
		return id, false
	}
	if len(ts.layers) >= MaxLayers {
		return -1, false
	}

	id := len(ts.layers)
	l := Layer{Texture: tex}
	if id > 0 {
		l.kind = AlphaExplicit
		for i := 0; i < alphamap.Samples; i++ {
			ts.alphaTex[i*3+id-1] = 0
		}
	}
	ts.layers = append(ts.layers, l)

	ts.retain(tex)
	if ts.observer != nil {
		ts.observer.LayerAdded(tex)
	}
	return id, true
}

// CanPaint возвращает true, если текстура уже есть или под неё найдётся слот
func (ts *TextureSet) CanPaint(tex texture.Handle) bool {
	return ts.Find(tex) >= 0 || len(ts.layers) < MaxLayers
}

// SwitchTexture заменяет текстуру oldTex на newTex на месте. Ничего не делает,
// если oldTex нет или newTex уже используется (дубликаты недопустимы).
func (ts *TextureSet) SwitchTexture(oldTex, newTex texture.Handle) bool {
	if ts.Find(newTex) >= 0 {
		return false
	}
	id := ts.Find(oldTex)
	if id < 0 {
		return false
	}

	ts.layers[id].Texture = newTex
	ts.retain(newTex)
	ts.release(oldTex)
	return true
}

// SwapTexture меняет местами два слоя вместе с флагами и покрытием.
// При участии базового слоя его остаточное покрытие переносится в явную
// плоскость, а прежняя явная плоскость становится остатком.
func (ts *TextureSet) SwapTexture(id1, id2 int) bool {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	if id1 == id2 || !ts.valid(id1) || !ts.valid(id2) {
		return false
	}

	if id1 > 0 {
		ts.layers[id1], ts.layers[id2] = ts.layers[id2], ts.layers[id1]
	} else {
		base, _ := ts.Plane(0)
		old0, old2 := ts.layers[0], ts.layers[id2]

		ts.layers[0] = Layer{
			Texture: old2.Texture,
			Flags:   old2.Flags,
			Effect:  old2.Effect,
			kind:    AlphaImplicit,
		}
		ts.layers[id2] = Layer{
			Texture: old0.Texture,
			Flags:   old0.Flags,
			Effect:  old0.Effect,
			kind:    AlphaExplicit,
			alpha:   base,
		}
	}

	ts.generateAlphaTex()
	return true
}

// EraseTexture удаляет слой id со сдвигом старших слоёв вниз.
// Если удалён базовый слой, следующий за ним становится базовым с остаточным покрытием.
func (ts *TextureSet) EraseTexture(id int) bool {
	if !ts.valid(id) {
		return false
	}
	ts.eraseLayer(id)
	ts.generateAlphaTex()
	return true
}

func (ts *TextureSet) eraseLayer(id int) {
	removed := ts.layers[id].Texture

	copy(ts.layers[id:], ts.layers[id+1:])
	ts.layers[len(ts.layers)-1] = Layer{}
	ts.layers = ts.layers[:len(ts.layers)-1]

	if id == 0 && len(ts.layers) > 0 {
		ts.layers[0].kind = AlphaImplicit
		ts.layers[0].alpha = alphamap.Plane{}
	}

	ts.release(removed)
	if ts.observer != nil {
		ts.observer.LayerErased(removed)
	}
}

// EraseAll удаляет все слои
func (ts *TextureSet) EraseAll() {
	for len(ts.layers) > 0 {
		ts.eraseLayer(len(ts.layers) - 1)
	}
	ts.generateAlphaTex()
}

// visibleLayers отмечает слои, видимые хотя бы в одном сэмпле: явный слой -
// при ненулевом покрытии, базовый: если сумма явных меньше 255.
func (ts *TextureSet) visibleLayers() [MaxLayers]bool {
	var visible [MaxLayers]bool
	n := len(ts.layers)
	found := 0

	for i := 0; i < alphamap.Samples && found < n; i++ {
		sum := 0
		for k := 1; k < n; k++ {
			a := ts.layers[k].alpha[i]
			sum += int(a)
			if a > 0 && !visible[k] {
				visible[k] = true
				found++
			}
		}
		if sum < 255 && !visible[0] {
			visible[0] = true
			found++
		}
	}
	return visible
}

// EraseUnused удаляет слои, не видимые ни в одном сэмпле.
// Применяется только при двух и более слоях; возвращает true, если что-то удалено.
func (ts *TextureSet) EraseUnused() bool {
	n := len(ts.layers)
	if n < 2 {
		return false
	}

	visible := ts.visibleLayers()
	erased := false
	for k := n - 1; k >= 0; k-- {
		if !visible[k] {
			ts.eraseLayer(k)
			erased = true
		}
	}

	if erased {
		ts.generateAlphaTex()
	}
	return erased
}

func (ts *TextureSet) retain(h texture.Handle) {
	if ts.refs != nil && !h.IsZero() {
		ts.refs.Retain(h)
	}
}

func (ts *TextureSet) release(h texture.Handle) {
	if ts.refs != nil && !h.IsZero() {
		ts.refs.Release(h)
	}
}
