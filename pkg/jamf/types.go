package jamf

import "strings"

// SourceKind distinguishes the two kinds of patch source.
type SourceKind string

// Patch source kinds, in resolution order.
const (
	SourceInternal SourceKind = "internal"
	SourceExternal SourceKind = "external"
)

// resource returns the classic API collection for the kind.
func (k SourceKind) resource() string {
	return "patch" + string(k) + "sources"
}

// PatchSource is a patch definition source known to the management server.
type PatchSource struct {
	ID   string     `xml:"id" json:"id"`
	Name string     `xml:"name" json:"name"`
	Kind SourceKind `xml:"-" json:"kind"`
}

// PackageRef is a package attached to a software title version.
type PackageRef struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
}

// TitleVersion is one known version of a software title.
type TitleVersion struct {
	SoftwareVersion string      `xml:"software_version"`
	Package         *PackageRef `xml:"package"`
}

// SoftwareTitle is a patch software title configuration.
type SoftwareTitle struct {
	ID       string         `xml:"id"`
	Name     string         `xml:"name"`
	NameID   string         `xml:"name_id"`
	SourceID string         `xml:"source_id"`
	Versions []TitleVersion `xml:"versions>version"`
}

// VersionStrings returns the known version strings in catalog order.
func (t *SoftwareTitle) VersionStrings() []string {
	versions := make([]string, 0, len(t.Versions))
	for _, v := range t.Versions {
		versions = append(versions, v.SoftwareVersion)
	}
	return versions
}

// AttachedPackages returns the names and ids of packages attached to any version.
func (t *SoftwareTitle) AttachedPackages() (names, ids []string) {
	for _, v := range t.Versions {
		if v.Package == nil {
			continue
		}
		if name := strings.TrimSpace(v.Package.Name); name != "" {
			names = append(names, name)
		}
		if id := strings.TrimSpace(v.Package.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return names, ids
}

// PolicySummary is an entry of the patch policy list of a software title.
type PolicySummary struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
}

type policyList struct {
	Policies []PolicySummary `xml:"patch_policy"`
}

// PatchPolicy is the detail of a patch policy.
type PatchPolicy struct {
	ID              string `xml:"general>id"`
	Name            string `xml:"general>name"`
	TargetVersion   string `xml:"general>target_version"`
	SoftwareTitleID string `xml:"software_title_configuration_id"`
}

// Package is a package record of the management server.
type Package struct {
	ID   string `xml:"id"`
	Name string `xml:"name"`
}
