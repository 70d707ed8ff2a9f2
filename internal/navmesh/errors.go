package navmesh

import "errors"

// Ошибки построения навмеша. Все они фатальны для загрузки карты.
var (
	ErrEmptyMesh        = errors.New("navmesh: нет ни одного региона")
	ErrDegenerateRegion = errors.New("navmesh: вырожденный регион")
	ErrNonConvexRegion  = errors.New("navmesh: регион не выпуклый")
	ErrNonPlanarRegion  = errors.New("navmesh: вершины региона не лежат в одной плоскости")
	ErrVerticalRegion   = errors.New("navmesh: вертикальный регион")
)
