package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ssd-technologies/lanshare/internal/quota"
	"github.com/ssd-technologies/lanshare/internal/share"
)

// handleListFiles handles GET /api/files?path= — list one directory level.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")

	entries, err := s.store.ListDirectory(rel)
	if err != nil {
		if errors.Is(err, share.ErrInvalidPath) || errors.Is(err, share.ErrNotFound) {
			writeDomainError(w, err)
			return
		}
		log.Printf("[server] list %q: %v", rel, err)
		writeError(w, http.StatusInternalServerError, "could not read directory")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleUpload handles POST /api/files/upload — multipart upload streamed to
// the shared tree, quota-checked and accounted.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}

	set, err := s.ledger.Settings()
	if err != nil {
		log.Printf("[server] read settings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Parts stream in form order; the UI sends "path" before "file".
	targetDir := ""
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, "no file provided")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart form")
			return
		}

		switch part.FormName() {
		case "path":
			val, err := io.ReadAll(io.LimitReader(part, 4096))
			part.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "malformed multipart form")
				return
			}
			targetDir = string(val)
		case "file":
			defer part.Close()
			s.streamUpload(w, part.FileName(), targetDir, part, set.SingleUploadLimitBytes,
				set.TotalCapacityBytes-set.UsedCapacityBytes)
			return
		default:
			part.Close()
		}
	}
}

// streamUpload writes the file part to disk under a mid-stream byte cap and
// commits the written size to the ledger. The cap is the tighter of the
// single-file limit and the remaining quota, so an oversized stream is cut
// off instead of filling the disk before the final check rejects it.
func (s *Server) streamUpload(w http.ResponseWriter, filename, targetDir string, body io.Reader, singleLimit, remaining int64) {
	if remaining < 0 {
		remaining = 0
	}
	maxBytes := singleLimit
	quotaBound := remaining < singleLimit
	if quotaBound {
		maxBytes = remaining
	}

	name, written, err := s.store.SaveUpload(targetDir, filename, body, maxBytes)
	if err != nil {
		if errors.Is(err, share.ErrTooLarge) {
			if quotaBound {
				writeDomainError(w, quota.ErrQuotaExceeded)
			} else {
				writeDomainError(w, quota.ErrFileTooLarge)
			}
			return
		}
		if errors.Is(err, share.ErrInvalidPath) {
			writeDomainError(w, err)
			return
		}
		log.Printf("[server] upload %q: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	finalRel := path.Join(filepath.ToSlash(targetDir), name)
	if err := s.ledger.CommitUpload(written); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) || errors.Is(err, quota.ErrFileTooLarge) {
			// Lost the race against a concurrent upload; the file no longer fits.
			if _, derr := s.store.DeleteFile(finalRel); derr != nil {
				log.Printf("[server] remove rejected upload %q: %v", finalRel, derr)
			}
			writeDomainError(w, err)
			return
		}
		// Best-effort accounting: the file stays, the counter drifts until
		// the next reconcile.
		log.Printf("[server] ledger commit for %q: %v", finalRel, err)
	}

	s.events.Broadcast("upload", finalRel)
	writeJSON(w, http.StatusOK, map[string]string{"fileName": name})
}

// handleDownload handles GET /api/files/download?fileName= — whole-file
// attachment download.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}

	abs, err := s.store.Resolve(fileName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, info, ok := s.openFile(w, abs)
	if !ok {
		return
	}
	defer f.Close()

	encoded := url.PathEscape(sanitizeFilename(fileName))
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+encoded)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if _, err := io.Copy(w, f); err != nil {
		log.Printf("[server] download %q: %v", fileName, err)
	}
}

// handlePreview handles GET /api/files/preview?fileName= — inline streaming,
// honoring a single byte range for media types.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}

	abs, err := s.store.Resolve(fileName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, info, ok := s.openFile(w, abs)
	if !ok {
		return
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(abs))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	// Ranges are honored only for streaming media; everything else is served
	// whole regardless of the request.
	if rangeHdr := r.Header.Get("Range"); rangeHdr != "" && isMedia(mimeType) {
		if start, end, ok := parseRange(rangeHdr, info.Size()); ok {
			length := end - start + 1
			w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(info.Size(), 10))
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
			w.Header().Set("Content-Type", mimeType)
			w.WriteHeader(http.StatusPartialContent)
			if _, err := io.Copy(w, io.NewSectionReader(f, start, length)); err != nil {
				log.Printf("[server] preview range %q: %v", fileName, err)
			}
			return
		}
	}

	encoded := url.PathEscape(sanitizeFilename(fileName))
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", "inline; filename*=UTF-8''"+encoded)
	if _, err := io.Copy(w, f); err != nil {
		log.Printf("[server] preview %q: %v", fileName, err)
	}
}

// openFile opens a resolved path for serving, writing the appropriate error
// response on failure.
func (s *Server) openFile(w http.ResponseWriter, abs string) (*os.File, os.FileInfo, bool) {
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "file not found")
		} else {
			log.Printf("[server] stat %q: %v", abs, err)
			writeError(w, http.StatusInternalServerError, "could not read file")
		}
		return nil, nil, false
	}
	if info.IsDir() {
		writeError(w, http.StatusBadRequest, "not a file")
		return nil, nil, false
	}
	f, err := os.Open(abs)
	if err != nil {
		log.Printf("[server] open %q: %v", abs, err)
		writeError(w, http.StatusInternalServerError, "could not read file")
		return nil, nil, false
	}
	return f, info, true
}

// deleteFileRequest is the JSON body for deleting a file.
type deleteFileRequest struct {
	FileName string `json:"fileName"`
	Password string `json:"password"`
}

// handleDeleteFile handles POST /api/files/delete — password-gated file
// removal with ledger decrement.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var req deleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "fileName and password are required")
		return
	}

	if err := s.ledger.VerifyPassword(req.Password); err != nil {
		if errors.Is(err, quota.ErrBadPassword) {
			writeError(w, http.StatusForbidden, "incorrect password")
			return
		}
		log.Printf("[server] verify password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	size, err := s.store.DeleteFile(req.FileName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.ledger.CommitDelta(-size); err != nil {
		log.Printf("[server] ledger decrement for %q: %v", req.FileName, err)
	}
	s.events.Broadcast("delete", req.FileName)
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

// sanitizeFilename strips directory components, quotes, and CR/LF from a
// filename to prevent Content-Disposition header injection.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}

// isMedia reports whether a MIME type is a streaming media type.
func isMedia(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "audio/")
}

// parseRange parses a single "bytes=start-end" range header against the file
// size. Suffix ranges and multi-range requests are not supported; callers
// fall back to serving the whole file.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	if i := strings.Index(spec, ","); i != -1 {
		spec = spec[:i]
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found || startStr == "" {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}
	if strings.TrimSpace(endStr) == "" {
		return start, size - 1, true
	}
	end, err = strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}
	if end >= size {
		end = size - 1
	}
	return start, end, true
}
