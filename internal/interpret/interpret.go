// Package interpret phrases a prediction for people.
package interpret

import (
	"fmt"
	"strings"
)

type band struct {
	min    float32
	format string
}

var bands = []band{
	{0.8, "That's definitely %s! I'm %.0f%% sure."},
	{0.5, "That looks like %s. I'm %.0f%% confident."},
	{0.25, "Hmm, maybe %s? Only %.0f%% sure, try adding more detail."},
	{0, "I can't really tell. My best guess is %s at %.0f%%."},
}

// Prediction describes a label and its confidence in [0,1].
func Prediction(label string, confidence float32) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "I couldn't recognise anything in this drawing."
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	for _, b := range bands {
		if confidence >= b.min {
			return fmt.Sprintf(b.format, article(label), confidence*100)
		}
	}
	return ""
}

func article(label string) string {
	switch label[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an " + label
	}
	return "a " + label
}
