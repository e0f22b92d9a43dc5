package minimap

import (
	"archive/zip"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

var ErrAssetNotFound = errors.New("asset not found")

// AssetLoader reads textures out of a Minecraft client jar.
type AssetLoader struct {
	Files map[string]*zip.File

	reader *zip.ReadCloser
}

func NewAssetLoaderFromClientJAR(path string) (*AssetLoader, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open client jar %s: %w", path, err)
	}

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "assets/minecraft/textures/") {
			continue
		}
		files[f.Name] = f
	}

	return &AssetLoader{
		Files:  files,
		reader: r,
	}, nil
}

func (a *AssetLoader) LoadPNG(name string) (image.Image, error) {
	file, ok := a.Files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrAssetNotFound)
	}

	fd, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return png.Decode(fd)
}

// LoadBlockTexture returns the texture seen from above for a block, falling
// back to its side texture.
func (a *AssetLoader) LoadBlockTexture(name string) (image.Image, error) {
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = name[idx+1:]
	}

	candidates := []string{
		fmt.Sprintf("assets/minecraft/textures/block/%s_top.png", name),
		fmt.Sprintf("assets/minecraft/textures/block/%s.png", name),
	}
	for _, path := range candidates {
		if _, ok := a.Files[path]; ok {
			return a.LoadPNG(path)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrAssetNotFound)
}

func (a *AssetLoader) Close() error {
	return a.reader.Close()
}
