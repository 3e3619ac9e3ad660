// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package matching

// Config sizes the books and event queues created for new markets.
type Config struct {
	// capacity of each of the four order trees of a book
	BookCapacity int `long:"book-capacity" description:"Number of resting orders per book side and tree"`
	// capacity of the fill/out event queue of a market
	EventQueueCapacity int `long:"event-queue-capacity"`
	// maximum number of resting orders visited by a single placement,
	// zero for no limit
	MatchLimit int `long:"match-limit"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		BookCapacity:       1024,
		EventQueueCapacity: 488,
		MatchLimit:         64,
	}
}
