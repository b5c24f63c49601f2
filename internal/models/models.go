package models

// Artifact is an immutable generated or uploaded image or video.
type Artifact struct {
	DataURL  string `json:"dataUrl"`
	MIMEType string `json:"mimeType"`
}

// StoredFile is an uploaded file kept inline so it can be serialized.
type StoredFile struct {
	DataURL string `json:"dataUrl"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// Role identifies the author of a chat message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of the assistant conversation
type ChatMessage struct {
	Role            Role             `json:"role"`
	Text            string           `json:"text"`
	Image           *StoredFile      `json:"image,omitempty"`
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// GroundingChunk is a citation returned with a grounded answer
type GroundingChunk struct {
	Web  *WebSource  `json:"web,omitempty"`
	Maps *MapsSource `json:"maps,omitempty"`
}

type WebSource struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

type MapsSource struct {
	URI                string              `json:"uri,omitempty"`
	Title              string              `json:"title,omitempty"`
	PlaceAnswerSources *PlaceAnswerSources `json:"placeAnswerSources,omitempty"`
}

type PlaceAnswerSources struct {
	ReviewSnippets []ReviewSnippet `json:"reviewSnippets,omitempty"`
}

type ReviewSnippet struct {
	URI     string `json:"uri,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Author  string `json:"author,omitempty"`
}

// CustomClothing is a user-authored clothing fragment for the prompt builder
type CustomClothing struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// CustomLocation is a user-authored location fragment for the prompt builder
type CustomLocation struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Detail   string `json:"detail"`
	Prompt   string `json:"prompt"`
}

// Location is a latitude/longitude pair used for Maps grounding
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
