package filesystem

import "strings"

// ParseLocation splits a location as rendered by domain.Origin.Location
// ("archive.zip!member.xml") into its XML member and zip path. A file://
// prefix is stripped. Plain paths return an empty zip path.
func ParseLocation(location string) (xmlPath, zipPath string) {
	location = strings.TrimPrefix(location, "file://")

	lower := strings.ToLower(location)
	if i := strings.Index(lower, ".zip!"); i >= 0 {
		return location[i+len(".zip!"):], location[:i+len(".zip")]
	}
	return location, ""
}
