package question

import (
	"github.com/go-playground/validator/v10"

	"github.com/orishlabs/orish/core"
)

var (
	categoryTag  = "category"
	categoryText = "invalid category"

	schemaFieldText = "required for this category"
)

func init() {
	_ = core.Validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(categoryTag, categoryText)

	core.Validate.RegisterStructValidation(newQuestionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation("schemafield", schemaFieldText)
}

// categoryValidation checks that the value is one of the known Categories.
func categoryValidation(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

// newQuestionStructValidation enforces the per-category field schema.
func newQuestionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok {
		return
	}
	report := func(val interface{}, jsonName, fieldName string) {
		sl.ReportError(val, jsonName, fieldName, "schemafield", "")
	}

	switch nq.Category {
	case CategoryVocabulary:
		if nq.Word == "" {
			report(nq.Word, "word", "Word")
		}
		reportMissingChoices(nq, report)
	case CategoryGrammar:
		if nq.Sentence == "" {
			report(nq.Sentence, "sentence", "Sentence")
		}
		reportMissingChoices(nq, report)
	case CategoryTranslation:
		if nq.Prompt == "" {
			report(nq.Prompt, "prompt", "Prompt")
		}
		if nq.Reference == "" {
			report(nq.Reference, "reference_answer", "Reference")
		}
	}
}

func reportMissingChoices(nq NewQuestion, report func(val interface{}, jsonName, fieldName string)) {
	if nq.Correct == "" {
		report(nq.Correct, "correct_answer", "Correct")
	}
	if nq.Wrong1 == "" {
		report(nq.Wrong1, "wrong1", "Wrong1")
	}
	if nq.Wrong2 == "" {
		report(nq.Wrong2, "wrong2", "Wrong2")
	}
	if nq.Wrong3 == "" {
		report(nq.Wrong3, "wrong3", "Wrong3")
	}
}
