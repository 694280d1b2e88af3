package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 上传类型
const (
	UploadDocument = "document"
	UploadAudio    = "audio"
)

var (
	AllowedDocumentExtensions = []string{".pdf", ".docx", ".pptx", ".txt", ".md"}
	AllowedAudioExtensions    = []string{".mp3", ".wav", ".m4a", ".ogg", ".webm"}
)
