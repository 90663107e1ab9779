package http_server

import (
	"net/http"
	"sort"

	"github.com/danthegoodman1/idhash/dtype"
)

type typeInfo struct {
	Kind string
	// Accepted tags, timestamps also take a unit and zone in brackets
	Tags []string
}

func (s *HTTPServer) GetTypes(c *CustomContext) error {
	byKind := map[dtype.Kind][]string{
		dtype.KindTimestamp: {"timestamp", "timestamp[unit]", "timestamp[unit, tz=zone]", "datetime64[unit]", "datetime64[unit, zone]"},
	}
	for tag, kind := range dtype.Tags {
		byKind[kind] = append(byKind[kind], tag)
	}

	var types []typeInfo
	for kind, tags := range byKind {
		sort.Strings(tags)
		types = append(types, typeInfo{Kind: kind.String(), Tags: tags})
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Kind < types[j].Kind })

	return c.JSON(http.StatusOK, types)
}
