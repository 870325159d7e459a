package transport

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/pitabwire/curator/model"
)

// Uploader proxies a file stream to the storage backend and returns the
// stored file URL.
type Uploader interface {
	Upload(ctx context.Context, rctx *model.RequestContext, filename string, file io.Reader) (string, error)
}

// allowedUploadExt is the extension allow-list for proxied uploads. Anything
// else is rejected before touching the storage backend.
var allowedUploadExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".mp4":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".glb":  true,
	".gltf": true,
	".pdf":  true,
	".csv":  true,
	".xlsx": true,
	".json": true,
}

func handleUpload(uploader Uploader, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, caps, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		if !caps.CanWrite {
			WriteError(w, model.NewWriteDeniedError())
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			WriteError(w, model.NewBadRequestError("file exceeds the upload size limit or is not valid multipart data"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, model.NewBadRequestError("multipart field \"file\" is required"))
			return
		}
		defer file.Close()

		ext := strings.ToLower(path.Ext(header.Filename))
		if !allowedUploadExt[ext] {
			WriteError(w, model.NewBadRequestError("file type is not allowed"))
			return
		}

		url, err := uploader.Upload(r.Context(), rctx, header.Filename, file)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}
