package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path"

	"github.com/ssd-technologies/lanshare/internal/quota"
	"github.com/ssd-technologies/lanshare/internal/share"
)

// handleFolderTree handles GET /api/folders — the directories-only
// navigation tree for the whole shared root.
func (s *Server) handleFolderTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.store.FolderTree()
	if err != nil {
		log.Printf("[server] folder tree: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read folder structure")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// createFolderRequest is the JSON body for creating a folder.
type createFolderRequest struct {
	FolderName string `json:"folderName"`
	ParentPath string `json:"parentPath"`
}

// handleCreateFolder handles POST /api/folders/create.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FolderName == "" {
		writeError(w, http.StatusBadRequest, "folderName is required")
		return
	}

	if err := s.store.CreateFolder(req.ParentPath, req.FolderName); err != nil {
		if errors.Is(err, share.ErrInvalidPath) {
			writeDomainError(w, err)
			return
		}
		log.Printf("[server] create folder %q under %q: %v", req.FolderName, req.ParentPath, err)
		writeError(w, http.StatusInternalServerError, "could not create folder")
		return
	}

	s.events.Broadcast("folder-create", path.Join(req.ParentPath, req.FolderName))
	writeJSON(w, http.StatusOK, map[string]string{"message": "folder created"})
}

// deleteFolderRequest is the JSON body for deleting a folder.
type deleteFolderRequest struct {
	FolderPath string `json:"folderPath"`
	Password   string `json:"password"`
}

// handleDeleteFolder handles POST /api/folders/delete — password-gated
// recursive removal. The subtree size is computed before removal and the
// ledger decremented by it afterwards.
func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	var req deleteFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.ledger.VerifyPassword(req.Password); err != nil {
		if errors.Is(err, quota.ErrBadPassword) {
			writeError(w, http.StatusUnauthorized, "invalid password")
			return
		}
		log.Printf("[server] verify password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.FolderPath == "" {
		writeError(w, http.StatusBadRequest, "folderPath is required")
		return
	}

	freed, skipped, err := s.store.DeleteFolder(req.FolderPath)
	if err != nil {
		if errors.Is(err, share.ErrInvalidPath) {
			writeDomainError(w, err)
			return
		}
		log.Printf("[server] delete folder %q: %v", req.FolderPath, err)
		writeError(w, http.StatusInternalServerError, "could not delete folder")
		return
	}
	if skipped > 0 {
		log.Printf("[server] delete folder %q: size scan skipped %d entries, counter may drift", req.FolderPath, skipped)
	}

	if err := s.ledger.CommitDelta(-freed); err != nil {
		log.Printf("[server] ledger decrement for %q: %v", req.FolderPath, err)
	}
	s.events.Broadcast("folder-delete", req.FolderPath)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "folder deleted",
		"skippedEntries": skipped,
	})
}
