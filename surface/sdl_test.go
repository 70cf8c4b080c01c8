// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package surface

import "testing"

var _ Surface = (*SDL)(nil)

func TestDestroyWithoutWindow(t *testing.T) {
	var s SDL
	s.Destroy()
	s.Destroy()
}
