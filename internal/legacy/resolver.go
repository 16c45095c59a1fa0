/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package legacy

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"golaunchpad/internal/discovery"
	"golaunchpad/internal/domain"
)

// BundleResolver matches legacy apps to installed ones: by bundle identifier among the
// discovered apps first, then by name among bundles found under SearchDirs.
type BundleResolver struct {
	SearchDirs []string
	MaxDepth   int

	byBundle map[string]domain.DiscoveredApp

	once   sync.Once
	byName map[string]domain.DiscoveredApp
}

// NewBundleResolver indexes discovered apps by bundle id. searchDirs are scanned lazily,
// once, on the first name-based lookup.
func NewBundleResolver(discovered []domain.DiscoveredApp, searchDirs []string) *BundleResolver {
	return &BundleResolver{
		SearchDirs: searchDirs,
		MaxDepth:   2,
		byBundle:   discovery.IndexByBundleID(discovered),
	}
}

// Resolve implements Resolver.
func (r *BundleResolver) Resolve(title, bundleID string) (domain.DiscoveredApp, bool) {
	fold := cases.Fold()
	if id := strings.TrimSpace(bundleID); id != "" {
		if d, ok := r.byBundle[fold.String(id)]; ok {
			return d, true
		}
	}
	t := strings.TrimSpace(title)
	if t == "" {
		return domain.DiscoveredApp{}, false
	}
	r.once.Do(r.indexNames)
	d, ok := r.byName[fold.String(t)]
	return d, ok
}

func (r *BundleResolver) indexNames() {
	roots := make([]discovery.Root, 0, len(r.SearchDirs))
	for _, d := range r.SearchDirs {
		roots = append(roots, discovery.Root{Path: d, Optional: true})
	}
	res := (&discovery.Scanner{Roots: roots, MaxDepth: r.MaxDepth}).Scan(context.Background())
	fold := cases.Fold()
	r.byName = make(map[string]domain.DiscoveredApp, 2*len(res.Apps))
	for _, a := range res.Apps {
		for _, k := range []string{a.Name, strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path))} {
			k = fold.String(k)
			if _, ok := r.byName[k]; !ok {
				r.byName[k] = a
			}
		}
	}
}
