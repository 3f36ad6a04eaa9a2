package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.profiles.Register(ctx, RegisterPlayerInput{FirstName: " Formiga ", LastName: "Mota", Position: "midfield"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Formiga", p.FirstName)
	assert.Nil(t, p.TeamID)

	got, err := env.profiles.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = env.profiles.GetByID(ctx, p.ID+100)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []RegisterPlayerInput{
		{FirstName: "", LastName: "Mota"},
		{FirstName: "Ana", LastName: "  "},
		{FirstName: strings.Repeat("a", 101), LastName: "Mota"},
		{FirstName: "Ana", LastName: "Mota", Position: strings.Repeat("p", 51)},
	}
	for _, in := range cases {
		_, err := env.profiles.Register(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestPlayerRegisterCountsCharactersNotBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.profiles.Register(ctx, RegisterPlayerInput{
		FirstName: strings.Repeat("Я", maxNameLength),
		LastName:  "Иванов",
		Position:  strings.Repeat("з", maxPositionLength),
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("Я", maxNameLength), p.FirstName)

	_, err = env.profiles.Register(ctx, RegisterPlayerInput{FirstName: strings.Repeat("Я", maxNameLength+1), LastName: "Иванов"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.profiles.Register(ctx, RegisterPlayerInput{FirstName: "Анна", LastName: "Мота", Position: strings.Repeat("з", maxPositionLength+1)})
	assert.ErrorIs(t, err, ErrValidation)
}
