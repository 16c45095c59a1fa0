/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultFolderName is used when no category stands out.
const DefaultFolderName = "New Folder"

type category struct {
	name     string
	keywords []string
}

// categories is consulted in order; keywords are matched as case-folded substrings of app names.
var categories = []category{
	{"Utilities", []string{"utility", "disk", "terminal", "monitor", "console", "calculator", "archive", "backup", "clean", "finder", "screenshot", "keychain"}},
	{"Productivity", []string{"word", "excel", "powerpoint", "pages", "numbers", "keynote", "notes", "office", "calendar", "reminder", "mail", "todo", "outlook", "notion", "docs"}},
	{"Developer", []string{"xcode", "code", "studio", "git", "docker", "sublime", "intellij", "goland", "pycharm", "postman", "simulator", "instruments", "iterm"}},
	{"Creativity", []string{"photo", "design", "sketch", "figma", "illustrator", "garageband", "logic", "final cut", "blender", "paint", "draw", "pixelmator", "affinity"}},
	{"Entertainment", []string{"music", "video", "tv", "movie", "podcast", "spotify", "vlc", "netflix", "player", "books", "audio"}},
	{"Social", []string{"message", "chat", "facetime", "slack", "discord", "telegram", "whatsapp", "zoom", "teams", "skype", "signal"}},
	{"Games", []string{"game", "steam", "chess", "arcade", "epic", "minecraft", "battle.net", "solitaire"}},
	{"Internet", []string{"safari", "chrome", "firefox", "browser", "edge", "opera", "brave", "ftp", "network", "vpn"}},
}

// SuggestFolderName guesses a folder name from member app names by counting how many names
// hit each category's keywords. Ties and zero hits fall back to DefaultFolderName.
func SuggestFolderName(appNames []string) string {
	fold := cases.Fold()
	counts := make([]int, len(categories))
	for _, n := range appNames {
		name := fold.String(n)
		for ci, c := range categories {
			for _, kw := range c.keywords {
				if strings.Contains(name, kw) {
					counts[ci]++
					break
				}
			}
		}
	}
	best, bestN, tie := -1, 0, false
	for ci, n := range counts {
		switch {
		case n > bestN:
			best, bestN, tie = ci, n, false
		case n == bestN && n > 0:
			tie = true
		}
	}
	if best < 0 || tie {
		return DefaultFolderName
	}
	return categories[best].name
}
