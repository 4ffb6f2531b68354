package model

// Icon is a symbolic icon identifier resolved by terminals against a fixed
// icon set. Unknown names fall back to IconPackage.
type Icon string

const (
	IconPackage Icon = "package"
	IconBrick   Icon = "brick"
	IconPaint   Icon = "paint"
	IconTool    Icon = "tool"
	IconPipe    Icon = "pipe"
	IconWood    Icon = "wood"
	IconElectro Icon = "electro"
)

var knownIcons = map[Icon]bool{
	IconPackage: true,
	IconBrick:   true,
	IconPaint:   true,
	IconTool:    true,
	IconPipe:    true,
	IconWood:    true,
	IconElectro: true,
}

// ResolveIcon maps an arbitrary icon name onto the closed icon set.
func ResolveIcon(name string) Icon {
	if knownIcons[Icon(name)] {
		return Icon(name)
	}
	return IconPackage
}

// Category groups products. Deleting a category is refused while any product
// still references it.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
}
