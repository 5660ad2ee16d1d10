package textureset

var (
	texAnimX = [8]float64{0, 1, 1, 1, 0, -1, -1, -1}
	texAnimY = [8]float64{1, 1, 0, -1, -1, -1, 0, 1}
)

// AnimOffset возвращает смещение текстурных координат слоя id в момент animtime (мс).
// detailSize число повторов текстуры на чанк. Для неанимированного слоя ok == false.
func (ts *TextureSet) AnimOffset(id int, animtime int64, detailSize float64) (dx, dy float64, ok bool) {
	if !ts.IsAnimated(id) {
		return 0, 0, false
	}

	flags := ts.layers[id].Flags
	spd := float64(flags.Speed())
	dir := flags.Direction()

	animspd := int64(200 * detailSize)
	if animspd <= 0 {
		return 0, 0, true
	}

	f := float64(int64(float64(animtime)*(spd/7.0))%animspd) / float64(animspd)
	return f * -texAnimX[dir], f * texAnimY[dir], true
}
