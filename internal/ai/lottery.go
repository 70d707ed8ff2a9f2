package ai

import "math/rand"

// ChooseAbility выбирает способность взвешенной лотереей.
// Берется первая способность, накопленный вес которой больше случайного числа из [0, сумма).
func ChooseAbility(abilities []AbilityChance, rng *rand.Rand) (string, bool) {
	sum := 0.0
	for _, a := range abilities {
		if a.Chance > 0 {
			sum += a.Chance
		}
	}
	if sum <= 0 {
		return "", false
	}

	draw := rng.Float64() * sum
	acc := 0.0
	last := ""
	for _, a := range abilities {
		if a.Chance <= 0 {
			continue
		}
		acc += a.Chance
		last = a.ID
		if acc > draw {
			return a.ID, true
		}
	}
	// сюда попадаем только из-за округления суммы
	return last, true
}
