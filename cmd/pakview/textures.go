package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/1siamBot/spritepak/engine/pak"
)

// maxTextures bounds the GPU images kept for previews.
const maxTextures = 64

// textureCache holds GPU copies of recently shown previews.
type textureCache struct {
	images map[*pak.Asset]*ebiten.Image
	order  []*pak.Asset // oldest first
}

func newTextureCache() *textureCache {
	return &textureCache{images: make(map[*pak.Asset]*ebiten.Image)}
}

// get returns the texture for a, uploading it on first use. Assets without
// a preview have no texture.
func (t *textureCache) get(a *pak.Asset) *ebiten.Image {
	if a == nil || !a.HasPreview() {
		return nil
	}
	if img, ok := t.images[a]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(a.Preview())
	t.images[a] = img
	t.order = append(t.order, a)
	if len(t.order) > maxTextures {
		old := t.order[0]
		t.order = t.order[1:]
		t.images[old].Deallocate()
		delete(t.images, old)
	}
	return img
}

// clear drops every texture, after the catalog is reloaded.
func (t *textureCache) clear() {
	for _, img := range t.images {
		img.Deallocate()
	}
	t.images = make(map[*pak.Asset]*ebiten.Image)
	t.order = nil
}
