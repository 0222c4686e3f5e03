package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/roomedit/internal/security"
	"github.com/manash/roomedit/pkg/models"
)

// Item is one edit job. Image paths are relative to the manifest until
// ParseFile resolves them.
type Item struct {
	Index     int
	Scene     string
	Mode      models.EditMode
	Tier      models.Tier
	Prompt    string
	Mask      string
	Reference string
	Output    string
}

type jsonItem struct {
	Scene     string `json:"scene"`
	Mode      string `json:"mode,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Mask      string `json:"mask,omitempty"`
	Reference string `json:"reference,omitempty"`
	Output    string `json:"output,omitempty"`
}

// ParseFile reads a manifest and resolves every image path against the
// manifest's directory. Paths that leave that directory are rejected.
func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var items []Item
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		items, err = ParseJSON(file)
	case ".txt", "":
		items, err = ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(path)
	for i := range items {
		if err := items[i].resolve(root); err != nil {
			return nil, fmt.Errorf("item %d: %w", items[i].Index, err)
		}
	}
	return items, nil
}

func (it *Item) resolve(root string) error {
	for _, p := range []*string{&it.Scene, &it.Mask, &it.Reference} {
		if *p == "" {
			continue
		}
		resolved, err := security.ResolveWithin(root, *p)
		if err != nil {
			return fmt.Errorf("%s: %w", *p, err)
		}
		*p = resolved
	}
	return nil
}

// ParseText reads one job per line: the scene path, an optional edit mode,
// then the prompt. Blank lines and lines starting with # are skipped.
//
//	living-room.png FURNITURE add a grey sofa by the window
//	kitchen.png ERASE
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++

		scene, rest, _ := strings.Cut(line, " ")
		item := Item{Index: index, Scene: scene}

		rest = strings.TrimSpace(rest)
		first, tail, _ := strings.Cut(rest, " ")
		if mode, err := models.ParseEditMode(first); err == nil {
			item.Mode = mode
			rest = strings.TrimSpace(tail)
		}
		item.Prompt = rest

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no edit jobs found in file")
	}

	return items, nil
}

// ParseJSON reads an array of job objects.
func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, fmt.Errorf("no edit jobs found in file")
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Scene) == "" {
			return nil, fmt.Errorf("item %d has no scene", i+1)
		}
		item := Item{
			Index:     i + 1,
			Scene:     ji.Scene,
			Prompt:    ji.Prompt,
			Mask:      ji.Mask,
			Reference: ji.Reference,
			Output:    ji.Output,
		}
		if ji.Mode != "" {
			if item.Mode, err = models.ParseEditMode(ji.Mode); err != nil {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}
		}
		if ji.Tier != "" {
			if item.Tier, err = models.ParseTier(ji.Tier); err != nil {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}
		}
		items[i] = item
	}

	return items, nil
}
