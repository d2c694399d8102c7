package media

var (
	planA = []float64{1.6, 2.4, 2.8, 1.8, 1.2, 3.2, 2.2}
	planB = []float64{2.0, 3.0, 1.5, 2.5, 1.8, 2.2, 1.5}
	planC = []float64{1.8, 2.2, 2.0, 2.5, 1.5, 2.8, 2.0}
)

var builtinTemplates = []Template{
	{ID: 1, Title: "Feature 1", Category: CategoryFeature, SlotDurations: planA},
	{ID: 2, Title: "Feature 2", Category: CategoryFeature, SlotDurations: planB},
	{ID: 3, Title: "New 1", Category: CategoryNew, SlotDurations: planA},
	{ID: 4, Title: "New 2", Category: CategoryNew, SlotDurations: planB},
	{ID: 5, Title: "New 3", Category: CategoryNew, SlotDurations: planC},
	{ID: 6, Title: "Most Viewed 1", Category: CategoryMostViewed, SlotDurations: planA},
	{ID: 7, Title: "Most Viewed 2", Category: CategoryMostViewed, SlotDurations: planB},
	{ID: 8, Title: "Most Viewed 3", Category: CategoryMostViewed, SlotDurations: planC},
}

// Templates returns copies of the built-in templates. An empty category
// returns all of them.
func Templates(category Category) []Template {
	out := make([]Template, 0, len(builtinTemplates))
	for _, t := range builtinTemplates {
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// FindTemplate returns a copy of the built-in template with the given id.
func FindTemplate(id int) (Template, bool) {
	for _, t := range builtinTemplates {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return Template{}, false
}
