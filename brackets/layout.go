package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-teams/models"
)

const (
	MinBracketSize = 4
	MaxBracketSize = 32
)

var ErrInvalidSize = errors.New("invalid bracket size")

// ValidateSize проверяет размер сетки. Порядок проверок важен: четность, минимум, максимум.
func ValidateSize(size int) error {
	switch {
	case size%2 != 0:
		return fmt.Errorf("%w: must be even", ErrInvalidSize)
	case size < MinBracketSize:
		return fmt.Errorf("%w: minimum %d", ErrInvalidSize, MinBracketSize)
	case size > MaxBracketSize:
		return fmt.Errorf("%w: maximum %d", ErrInvalidSize, MaxBracketSize)
	}
	return nil
}

// GroupForIndex возвращает группу для команды с индексом index (с нуля) в сетке размера size.
// Группы идут непрерывными отрезками по size/8 команд. Сетка меньше 8 команд целиком попадает в группу A.
func GroupForIndex(index, size int) string {
	groupCount := len(models.Groups)
	if size < groupCount || index < 0 {
		return models.Groups[0]
	}
	pos := index * groupCount / size
	if pos >= groupCount {
		pos = groupCount - 1
	}
	return models.Groups[pos]
}

// TeamName - "Team A01": буква группы и порядковый номер в сетке, начиная с 1.
func TeamName(group string, index int) string {
	return fmt.Sprintf("Team %s%02d", group, index+1)
}

// TeamsPerGroup считает, сколько команд попадет в каждую группу при данном размере сетки.
func TeamsPerGroup(size int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < size; i++ {
		counts[GroupForIndex(i, size)]++
	}
	return counts
}
