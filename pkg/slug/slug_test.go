package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := []struct {
		title string
		id    int64
		want  string
	}{
		{"Квартира", 42, "42-kvartira"},
		{"Продаж 2-кімнатної квартири", 7, "7-prodazh-2-kimnatnoyi-kvartiri"},
		{"Київ, вул. Хрещатик", 100, "100-kiyiv-vul-khreshchatik"},
		{"Ґанок і їжак є", 1, "1-ganok-i-yizhak-ye"},
		{"", 15, "15-"},
		{"   ", 15, "15-"},
		{"Modern   flat --- downtown", 3, "3-modern-flat-downtown"},
		{"ЖК «Новий» №5", 9, "9-zhk-noviy-5"},
	}

	for _, tt := range tests {
		got := Generate(tt.title, tt.id)
		if got != tt.want {
			t.Errorf("Generate(%q, %d) = %q; want %q", tt.title, tt.id, got, tt.want)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first := Generate("Квартира", 42)
	for i := 0; i < 100; i++ {
		if got := Generate("Квартира", 42); got != first {
			t.Fatalf("Generate not deterministic: %q != %q", got, first)
		}
	}
}

func TestGenerateUniqueByID(t *testing.T) {
	a := Generate("Квартира", 1)
	b := Generate("Квартира", 2)
	if a == b {
		t.Errorf("same title with different ids must differ: %q == %q", a, b)
	}
}
