package engine

import (
	"encoding/json"
	"testing"
)

func TestCoordinateSystem_Move(t *testing.T) {
	tests := []struct {
		name   string
		sys    CoordinateSystem
		from   Coordinate
		dir    Direction
		want   Coordinate
		wantOK bool
	}{
		{"north", CoordinateSystem{Width: 5, Height: 5, Planes: 1}, at(2, 2), North, at(2, 1), true},
		{"south-east", CoordinateSystem{Width: 5, Height: 5, Planes: 1}, at(2, 2), SouthEast, at(3, 3), true},
		{"west edge blocked", CoordinateSystem{Width: 5, Height: 5, Planes: 1}, at(0, 2), West, at(0, 2), false},
		{"west edge wraps", CoordinateSystem{Width: 5, Height: 5, Planes: 1, WrapsLeftToRight: true}, at(0, 2), West, at(4, 2), true},
		{"north edge blocked", CoordinateSystem{Width: 5, Height: 5, Planes: 1, WrapsLeftToRight: true}, at(2, 0), North, at(2, 0), false},
		{"north edge wraps", CoordinateSystem{Width: 5, Height: 5, Planes: 1, WrapsTopToBottom: true}, at(2, 0), North, at(2, 4), true},
		{"corner wraps both", CoordinateSystem{Width: 5, Height: 4, Planes: 1, WrapsLeftToRight: true, WrapsTopToBottom: true}, at(4, 3), SouthEast, at(0, 0), true},
		{"plane kept", CoordinateSystem{Width: 5, Height: 5, Planes: 2}, at3(1, 1, 1), East, at3(2, 1, 1), true},
		{"no direction", CoordinateSystem{Width: 5, Height: 5, Planes: 1}, at(1, 1), NoDirection, at(1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.sys.Move(tt.from, tt.dir)
			if ok != tt.wantOK {
				t.Fatalf("Move() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Move() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGrid_IndexRoundTrip(t *testing.T) {
	g := NewGrid[int](CoordinateSystem{Width: 4, Height: 3, Planes: 2})
	if g.Len() != 24 {
		t.Fatalf("Len() = %d, want 24", g.Len())
	}

	for i := 0; i < g.Len(); i++ {
		c := g.At(i)
		if g.Index(c) != i {
			t.Errorf("Index(At(%d)) = %d", i, g.Index(c))
		}
	}

	if got := g.Index(at3(3, 2, 1)); got != 23 {
		t.Errorf("Index of last cell = %d, want 23", got)
	}
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g := NewGrid[int](CoordinateSystem{Width: 3, Height: 3, Planes: 1})
	g.Set(at(1, 1), 7)

	clone := g.Clone()
	clone.Set(at(1, 1), 9)
	*clone.Ptr(at(0, 0)) = 3

	if g.Get(at(1, 1)) != 7 || g.Get(at(0, 0)) != 0 {
		t.Error("modifying the clone changed the original")
	}
}

func TestGrid_Layers(t *testing.T) {
	g := NewGrid[int](CoordinateSystem{Width: 3, Height: 2, Planes: 2})
	g.Each(func(c Coordinate, _ int) {
		g.Set(c, c.Plane*100+c.Y*10+c.X)
	})

	layers := g.Layers()
	if len(layers) != 2 || len(layers[1]) != 2 || len(layers[1][1]) != 3 {
		t.Fatalf("unexpected shape %v", layers)
	}
	if layers[1][1][2] != 112 {
		t.Errorf("layers[1][1][2] = %d, want 112", layers[1][1][2])
	}
}

func TestDirectionNames(t *testing.T) {
	for d := North; d <= NorthWest; d++ {
		parsed, ok := ParseDirection(d.String())
		if !ok || parsed != d {
			t.Errorf("ParseDirection(%q) = %v, %v", d.String(), parsed, ok)
		}
	}

	if _, ok := ParseDirection("up"); ok {
		t.Error("ParseDirection accepted an unknown name")
	}
}

func TestCoordinateJSON(t *testing.T) {
	data, err := json.Marshal(at3(1, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"x":1,"y":2,"plane":1}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestChebyshevDistance(t *testing.T) {
	sys := CoordinateSystem{Width: 10, Height: 10, Planes: 1, WrapsLeftToRight: true}

	tests := []struct {
		from, to Coordinate
		want     int
	}{
		{at(0, 0), at(3, 1), 3},
		{at(0, 0), at(9, 0), 1},
		{at(0, 0), at(0, 9), 9},
		{at(4, 4), at(4, 4), 0},
	}
	for _, tt := range tests {
		if got := ChebyshevDistance(sys, tt.from, tt.to); got != tt.want {
			t.Errorf("ChebyshevDistance(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}
