package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/cloudstory/cloudstory/internal/filestorage"
)

func (s server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	name, err := s.files.Store(data, fh.Filename)
	if err != nil {
		writeInternalError(r, w, "failed to store file: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, UploadFileResponse{
		Success:         true,
		FileName:        name,
		FileDownloadURI: "/api/files/uploads/" + name,
		Size:            len(data),
	})
}

func (s server) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fileName")

	path, err := s.files.Resolve(name)
	if err != nil {
		if errors.Is(err, filestorage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		writeInternalError(r, w, "failed to resolve file: "+err.Error())
		return
	}

	http.ServeFile(w, r, path)
}
