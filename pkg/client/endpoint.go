package client

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// EndpointLabel collapses resource IDs in path so it can be used as a metric
// label. WorkOS IDs look like "org_01EHZNVPK3SFK441A1RGBFSHRT".
//
//	/organizations/org_01EHZNVPK3SFK441A1RGBFSHRT -> /organizations/:id
func EndpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if isResourceID(segment) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isResourceID(segment string) bool {
	i := strings.LastIndexByte(segment, '_')
	if i <= 0 || i == len(segment)-1 {
		return false
	}
	_, err := ulid.ParseStrict(segment[i+1:])
	return err == nil
}
