package detfusion

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line, the line number being the class ID.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return labels, nil
}

// LabelMap converts a list of labels into a class ID to name lookup, skipping
// blank lines
func LabelMap(labels []string) map[int]string {

	names := make(map[int]string, len(labels))

	for i, l := range labels {
		if l == "" {
			continue
		}
		names[i] = l
	}

	return names
}

// COCOAnimalNames returns the names of the animal classes using the 91
// category IDs of the COCO dataset
func COCOAnimalNames() map[int]string {
	return map[int]string{
		16: "bird",
		17: "cat",
		18: "dog",
		19: "horse",
		20: "sheep",
		21: "cow",
		22: "elephant",
		23: "bear",
		24: "zebra",
		25: "giraffe",
	}
}
