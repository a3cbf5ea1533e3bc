package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"remotestorage/internal/storage/proto"
)

// folderItemDescription is one entry of the folder-listing "items" map, as
// defined by the remoteStorage folder-description media type.
type folderItemDescription struct {
	ETag         string  `json:"ETag"`
	ContentType  string  `json:"Content-Type,omitempty"`
	ContentLength int    `json:"Content-Length,omitempty"`
	LastModified *string `json:"Last-Modified,omitempty"`
}

type folderDescription struct {
	Context string                           `json:"@context"`
	Items   map[string]folderItemDescription `json:"items"`
}

func writeFolderDescription(w http.ResponseWriter, folderPath string, engineResponse proto.EngineResponse) {
	items := make(map[string]folderItemDescription, len(engineResponse.Children))
	for childKey, child := range engineResponse.Children {
		name := strings.TrimPrefix(childKey, folderPath)
		desc := folderItemDescription{}
		if child.Etag != nil {
			desc.ETag = string(*child.Etag)
		}
		if child.ContentType != "" {
			desc.ContentType = child.ContentType
			desc.ContentLength = len(child.Content)
		}
		if child.LastModified != nil {
			lastModified := child.LastModified.String()
			desc.LastModified = &lastModified
		}
		items[name] = desc
	}

	body := folderDescription{
		Context: "http://remotestorage.io/spec/folder-description",
		Items:   items,
	}
	json.NewEncoder(w).Encode(body)
}
