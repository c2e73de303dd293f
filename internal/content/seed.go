// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/corpsite/internal/docstore"
	"github.com/olegiv/corpsite/internal/model"
	"github.com/olegiv/corpsite/internal/util"
)

// demoContent is written to collections that are still empty.
var demoContent = map[string][]map[string]any{
	docstore.CollectionSliders: {
		{"kicker": "Digital product studio", "title": "Build what your customers need", "subtitle": "Strategy, design and engineering under one roof.", "ctaText": "Our services", "ctaLink": "/services", "order": 1, "imageUrl": "/static/img/slide-1.jpg"},
		{"kicker": "Cloud and platforms", "title": "Ship faster on modern infrastructure", "subtitle": "We migrate, automate and run your platform.", "ctaText": "Talk to us", "ctaLink": "/contact", "order": 2, "imageUrl": "/static/img/slide-2.jpg"},
	},
	docstore.CollectionServices: {
		{"title": "Web Platforms", "category": "Engineering", "description": "Custom web applications built for scale.", "highlights": []any{"Go and TypeScript", "API design", "Performance audits"}, "priority": 1, "ctaText": "Start a project", "ctaLink": "/contact"},
		{"title": "Product Design", "category": "Design", "description": "Research, UX and UI that converts.", "highlights": []any{"Discovery workshops", "Design systems"}, "priority": 2},
		{"title": "Managed Cloud", "category": "Operations", "description": "Monitoring, backups and on-call for your stack.", "highlights": []any{"24/7 support", "Cost reviews"}, "priority": 3},
	},
	docstore.CollectionTeam: {
		{"name": "Alex Morgan", "role": "Managing Director", "bio": "Fifteen years of building software businesses.", "order": 1},
		{"name": "Sam Rivera", "role": "Head of Engineering", "bio": "Leads our platform and cloud teams.", "order": 2},
	},
	docstore.CollectionProjects: {
		{"title": "Harbor Logistics Portal", "industry": "Logistics", "summary": "Shipment tracking for 400 carriers.", "order": 1},
		{"title": "Greenfield Health App", "industry": "Healthcare", "summary": "Appointment booking used by 60 clinics.", "order": 2},
	},
	docstore.CollectionBlogPosts: {
		{"title": "Choosing a stack for your next product", "excerpt": "What we weigh before the first line of code.", "body": "## Start with the team\n\nThe best stack is the one your team can **operate**.\n", "author": "Sam Rivera", "category": "Engineering"},
	},
}

// demoSettings is written when no settings exist.
var demoSettings = model.SiteSettings{
	Tagline:      DefaultSettings.Tagline,
	AboutIntro:   DefaultSettings.AboutIntro,
	AboutSnippet: "Founded in 2015, we partner with companies from seed stage to enterprise.",
	Mission:      "Help our clients ship software that matters.",
	Vision:       "A trusted technology partner for every growing business.",
	CTAText:      DefaultSettings.CTAText,
	Email:        "hello@example.com",
	Stats: []model.Stat{
		{Value: "120+", Label: "Projects delivered"},
		{Value: "40", Label: "Engineers"},
	},
	QuickLinks: []model.Link{
		{Label: "Services", URL: "/services"},
		{Label: "Careers", URL: "/apply"},
	},
}

// SeedDemo fills empty collections and missing settings with demo content.
// Collections that already hold records are left alone.
func SeedDemo(ctx context.Context, store docstore.Store, logger *slog.Logger) error {
	logger.Info("seeding demo content")

	if _, err := store.Get(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID); err != nil {
		fields := demoSettings.Fields()
		fields[docstore.FieldCreatedAt] = docstore.ServerTimestamp
		fields[docstore.FieldUpdatedAt] = docstore.ServerTimestamp
		if err := store.Set(ctx, docstore.CollectionSiteSettings, docstore.SiteSettingsID, fields); err != nil {
			return fmt.Errorf("seeding site settings: %w", err)
		}
	}

	for _, collection := range []string{
		docstore.CollectionSliders,
		docstore.CollectionServices,
		docstore.CollectionTeam,
		docstore.CollectionProjects,
		docstore.CollectionBlogPosts,
	} {
		existing, err := store.Query(ctx, docstore.Query{Collection: collection, Limit: 1})
		if err != nil {
			return fmt.Errorf("checking %s: %w", collection, err)
		}
		if len(existing) > 0 {
			continue
		}
		for _, record := range demoContent[collection] {
			if err := addDemoRecord(ctx, store, collection, record); err != nil {
				return fmt.Errorf("seeding %s: %w", collection, err)
			}
		}
		logger.Info("seeded demo records", "collection", collection, "count", len(demoContent[collection]))
	}
	return nil
}

func addDemoRecord(ctx context.Context, store docstore.Store, collection string, record map[string]any) error {
	fields := make(map[string]any, len(record)+4)
	for k, v := range record {
		fields[k] = v
	}
	if collection == docstore.CollectionBlogPosts || collection == docstore.CollectionProjects {
		title, _ := record["title"].(string)
		fields["slug"] = util.Slugify(title)
	}
	if collection == docstore.CollectionBlogPosts {
		fields[docstore.FieldPublishedAt] = docstore.ServerTimestamp
	}
	fields[docstore.FieldCreatedAt] = docstore.ServerTimestamp
	fields[docstore.FieldUpdatedAt] = docstore.ServerTimestamp
	_, err := store.Add(ctx, collection, fields)
	return err
}
