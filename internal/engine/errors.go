package engine

import "github.com/lair-chat/lair-chat-server/internal/repo"

// isNotFound is a small readability wrapper over repo.IsNotFound, used at
// handler call sites that translate a storage miss into apperr.NotFound.
func isNotFound(err error) bool {
	return repo.IsNotFound(err)
}

// isConflict is a small readability wrapper over repo.IsConflict.
func isConflict(err error) bool {
	return repo.IsConflict(err)
}
