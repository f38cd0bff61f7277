package manifest

import "encoding/xml"

// Fragment is one manifest file as written on disk, before includes are
// expanded and before remotes are resolved.
type Fragment struct {
	XMLName     xml.Name       `xml:"manifest"`
	Remotes     []RemoteRef    `xml:"remote"`
	Default     *DefaultRemote `xml:"default"`
	Projects    []RawProject   `xml:"project"`
	Includes    []Include      `xml:"include"`
	ContactInfo *ContactInfo   `xml:"contactinfo"`
}

// RemoteRef is a <remote> element.
type RemoteRef struct {
	Name     string `xml:"name,attr"`
	Fetch    string `xml:"fetch,attr"`
	PushURL  string `xml:"pushurl,attr,omitempty"`
	Review   string `xml:"review,attr,omitempty"`
	Revision string `xml:"revision,attr,omitempty"`
}

// DefaultRemote is the <default> element.
type DefaultRemote struct {
	Remote     string `xml:"remote,attr"`
	Revision   string `xml:"revision,attr,omitempty"`
	DestBranch string `xml:"dest-branch,attr,omitempty"`
	SyncJ      string `xml:"sync-j,attr,omitempty"`
	SyncC      string `xml:"sync-c,attr,omitempty"`
}

// RawProject is a <project> element.
type RawProject struct {
	Name       string     `xml:"name,attr"`
	Path       string     `xml:"path,attr,omitempty"`
	Remote     string     `xml:"remote,attr,omitempty"`
	Revision   string     `xml:"revision,attr,omitempty"`
	DestBranch string     `xml:"dest-branch,attr,omitempty"`
	Groups     string     `xml:"groups,attr,omitempty"`
	SyncC      string     `xml:"sync-c,attr,omitempty"`
	CloneDepth string     `xml:"clone-depth,attr,omitempty"`
	LinkFiles  []FileCopy `xml:"linkfile"`
	CopyFiles  []FileCopy `xml:"copyfile"`
}

// FileCopy is a <linkfile> or <copyfile> element nested in a project.
type FileCopy struct {
	Src  string `xml:"src,attr" json:"src" yaml:"src"`
	Dest string `xml:"dest,attr" json:"dest" yaml:"dest"`
}

// Include is an <include> element. Name is relative to the manifest root.
type Include struct {
	Name   string `xml:"name,attr"`
	Groups string `xml:"groups,attr,omitempty"`
}

// ContactInfo is the <contactinfo> element.
type ContactInfo struct {
	BugURL string `xml:"bugurl,attr"`
}
