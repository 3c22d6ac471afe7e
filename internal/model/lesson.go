package model

// Lesson is one week's handout. Content holds the markdown body.
type Lesson struct {
	ID          string   `yaml:"id"`
	Week        int      `yaml:"week"`
	Title       string   `yaml:"title"`
	Subtitle    string   `yaml:"subtitle"`
	Objectives  []string `yaml:"objectives"`
	ContentFile string   `yaml:"content"`
	Content     string   `yaml:"-"`
}

// Catalog is the set of handouts published for the program.
type Catalog struct {
	Program  string   `yaml:"program"`
	ExamCode string   `yaml:"exam_code"`
	Lessons  []Lesson `yaml:"lessons"`
}
