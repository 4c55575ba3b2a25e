package dto

// UploadResponse acknowledges a processed roster sheet.
type UploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ImportResult reports how many roster rows an import touched.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
