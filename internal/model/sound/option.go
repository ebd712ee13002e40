package sound

// DefaultID is the ambience used when a session has not picked one.
const DefaultID = "none"

// Option is one selectable background ambience.
type Option struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	AIContext     string `json:"aiContext"`
	AudioURL      string `json:"audioUrl,omitempty"`
	BackgroundURL string `json:"backgroundImageUrl"`
}

// Seed provides the built-in ambience options. baseURL prefixes audio assets.
func Seed(baseURL string) []Option {
	return []Option{
		{
			ID:            "breeze",
			Label:         "Gentle breeze",
			AIContext:     "Right now the conversation is accompanied by the sound of a gentle breeze.",
			AudioURL:      baseURL + "breeze.mp3",
			BackgroundURL: "images/breeze.png",
		},
		{
			ID:            "amusement",
			Label:         "Exciting amusement park",
			AIContext:     "Right now the conversation is accompanied by the sounds of an exciting amusement park.",
			AudioURL:      baseURL + "amusement.mp3",
			BackgroundURL: "images/amusement.png",
		},
		{
			ID:            "ocean",
			Label:         "Cool ocean",
			AIContext:     "Right now the conversation is accompanied by the sound of a cool ocean.",
			AudioURL:      baseURL + "ocean.mp3",
			BackgroundURL: "images/ocean.png",
		},
		{
			ID:            DefaultID,
			Label:         "No music",
			AIContext:     "Right now the conversation takes place in a quiet, comfortable room.",
			BackgroundURL: "images/none.png",
		},
	}
}
