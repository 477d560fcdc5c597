package formats

import (
	"encoding/json"

	"github.com/gravitational/trace"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// nativeFormatVersion is bumped whenever the native document's shape
// changes in a way that breaks backward compatibility.
const nativeFormatVersion = 1

// Native implements spec.md §4.C's native format: a compact,
// self-describing, versioned container that round-trips every field of
// the Connections and Groups it carries. Connection holds no encrypted
// credential field, so no credential material is written. It
// carries no teacher precedent in original_source/ — there is no
// "native" exporter to ground on because RustConn's native format IS
// the in-process object graph — so it is a direct JSON encoding of
// ImportResult's shape, the simplest lossless container available.
type Native struct{}

func (Native) FormatID() string    { return "native" }
func (Native) DisplayName() string { return "RustConn Native" }

func (Native) Supports(p catalog.Protocol) bool { return true }

type nativeDocument struct {
	Version     int                        `json:"version"`
	Connections []*catalog.Connection      `json:"connections"`
	Groups      []*catalog.ConnectionGroup `json:"groups"`
}

func (Native) Import(data []byte) (*importexport.ImportResult, error) {
	var doc nativeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, trace.Wrap(err, "parsing native document")
	}
	if doc.Version > nativeFormatVersion {
		return nil, trace.BadParameter("native document version %d is newer than supported version %d", doc.Version, nativeFormatVersion)
	}
	return &importexport.ImportResult{
		Connections: doc.Connections,
		Groups:      doc.Groups,
	}, nil
}

func (Native) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	doc := nativeDocument{
		Version:     nativeFormatVersion,
		Connections: conns,
		Groups:      groups,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, trace.Wrap(err, "encoding native document")
	}
	return data, nil
}
