package model

// ConsoleDefinition is the root structure of a console definition file. Each
// file declares the site chrome, the navigation menu, and per-resource UI
// overlays for one console deployment.
type ConsoleDefinition struct {
	Site      SiteDefinition        `yaml:"site"      json:"site"`
	Menu      []MenuItemDefinition  `yaml:"menu"      json:"menu,omitempty"`
	Resources []ResourceOverlay     `yaml:"resources" json:"resources,omitempty"`

	// Checksum is computed at load time and not part of the YAML.
	Checksum string `yaml:"-" json:"-"`
	// SourceFile records the originating file path.
	SourceFile string `yaml:"-" json:"-"`
}

// SiteDefinition describes the console chrome.
type SiteDefinition struct {
	Title  string `yaml:"title"  json:"title,omitempty"`
	Logo   string `yaml:"logo"   json:"logo,omitempty"`
	Footer string `yaml:"footer" json:"footer,omitempty"`
}

// MenuItemDefinition describes one entry of the navigation menu. Section
// names gate visibility through the capability set.
type MenuItemDefinition struct {
	Path       string               `yaml:"path"       json:"path"`
	Name       string               `yaml:"name"       json:"name,omitempty"`
	Icon       string               `yaml:"icon"       json:"icon,omitempty"`
	Section    string               `yaml:"section"    json:"-"`
	HideInMenu bool                 `yaml:"hide"       json:"hideInMenu,omitempty"`
	Children   []MenuItemDefinition `yaml:"children"   json:"children,omitempty"`
}

// ResourceOverlay customizes how one backend resource is presented without
// changing the upstream schema: hidden columns, a fixed sort merged into
// every query, an overridden title or page size.
type ResourceOverlay struct {
	Name          string            `yaml:"name"       json:"name"`
	Title         string            `yaml:"title"      json:"title,omitempty"`
	HiddenColumns []string          `yaml:"hidden_columns" json:"hiddenColumns,omitempty"`
	FixedSort     map[string]string `yaml:"fixed_sort" json:"fixedSort,omitempty"`
	PageSize      int               `yaml:"page_size"  json:"pageSize,omitempty"`
	DisableExport bool              `yaml:"disable_export" json:"disableExport,omitempty"`
}
