package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/lineaapp/linea/internal/model"
)

type demoEvent struct {
	title       string
	start       model.Date
	end         *model.Date
	category    model.Category
	description string
}

func dateRange(y int, m time.Month, d int) *model.Date {
	date := model.NewDate(y, m, d)
	return &date
}

var demoEvents = []demoEvent{
	{"Notre mariage", model.NewDate(2015, time.June, 20), nil, model.CategoryFamily,
		"Le plus beau jour de notre vie. Cérémonie intime dans le jardin de mes parents, entourés de nos proches."},
	{"Voyage de noces en Italie", model.NewDate(2015, time.July, 1), dateRange(2015, time.July, 15), model.CategoryTravel,
		"Deux semaines magiques entre Rome, Florence et la côte amalfitaine."},
	{"Naissance de Léa", model.NewDate(2017, time.March, 12), nil, model.CategoryFamily,
		"Notre petite princesse est arrivée à 6h42 du matin. 3,2 kg de bonheur pur."},
	{"Premier appartement", model.NewDate(2017, time.September, 1), nil, model.CategoryPersonal,
		"Enfin chez nous ! Un 3 pièces lumineux avec vue sur le parc."},
	{"Vacances en Bretagne", model.NewDate(2018, time.August, 10), dateRange(2018, time.August, 24), model.CategoryTravel,
		"Deux semaines de plage, crêpes et balades sur les sentiers côtiers avec Léa."},
	{"Naissance de Lucas", model.NewDate(2019, time.November, 28), nil, model.CategoryFamily,
		"Notre petit bonhomme complète la famille. Léa est tellement fière d'être grande sœur."},
	{"Achat de la maison", model.NewDate(2020, time.June, 15), nil, model.CategoryPersonal,
		"Notre rêve se réalise : une maison avec jardin pour voir grandir les enfants."},
	{"Noël en famille", model.NewDate(2020, time.December, 25), nil, model.CategoryFamily,
		"Premier Noël dans notre nouvelle maison avec les grands-parents."},
	{"Road trip en Espagne", model.NewDate(2022, time.July, 15), dateRange(2022, time.July, 30), model.CategoryTravel,
		"Barcelone, Valence, Séville... Les enfants ont adoré la sangria (sans alcool !)."},
	{"Rentrée à l'école de Léa", model.NewDate(2023, time.September, 4), nil, model.CategoryFamily,
		"Grande étape : Léa entre au CP. Tellement de fierté et un peu de larmes."},
	{"Anniversaire de mariage - 10 ans", model.NewDate(2025, time.June, 20), nil, model.CategoryFamily,
		"Dix ans d'amour célébrés avec un dîner romantique et une surprise des enfants."},
}

// DemoEvents returns fresh copies of the sample memories with new ids.
func DemoEvents() []model.TimelineEvent {
	now := time.Now()
	out := make([]model.TimelineEvent, len(demoEvents))
	for i, d := range demoEvents {
		out[i] = model.TimelineEvent{
			ID:          uuid.NewString(),
			Title:       d.title,
			StartDate:   d.start,
			EndDate:     d.end,
			Category:    d.category,
			Description: d.description,
			Media:       []model.Media{},
			CreatedAt:   now,
		}
	}
	return out
}
