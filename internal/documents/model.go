package documents

import "time"

// Document is stored metadata for an uploaded file. The binary itself lives
// under the storage key in whatever blob store the deployment points at;
// this service only accounts for names, types, and sizes.
type Document struct {
	ID          int64     `json:"id"`
	VehicleID   int64     `json:"vehicle_id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest registers an uploaded file against a vehicle.
type CreateRequest struct {
	VehicleID   int64  `json:"vehicle_id" validate:"required,gt=0"`
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=120"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,gt=0"`
}

// Usage summarizes a vehicle's document storage accounting.
type Usage struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}
