package files

import (
	"time"

	"github.com/google/uuid"
)

// File - документ объекта (планы, чеки). Содержимое во внешнем хранилище, здесь только ссылка.
type File struct {
	ID          uuid.UUID `json:"id"`
	WorkID      uuid.UUID `json:"workId"`
	Name        string    `json:"name" binding:"required,max=255"`
	URL         string    `json:"url" binding:"required,url"`
	ContentType string    `json:"contentType" binding:"max=100"`
	SizeBytes   int64     `json:"sizeBytes" binding:"gte=0"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (f *File) Scope(workID, id uuid.UUID) { f.WorkID, f.ID = workID, id }
