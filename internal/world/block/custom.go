package block

// Props - описание блока из файла таблицы определений
type Props struct {
	ID        ID      `yaml:"id" toml:"id"`
	Name      string  `yaml:"name" toml:"name"`
	Solid     *bool   `yaml:"solid" toml:"solid"`
	Climbable bool    `yaml:"climbable" toml:"climbable"`
	Viscosity float32 `yaml:"viscosity" toml:"viscosity"`
	BreakTime float32 `yaml:"break_time" toml:"break_time"`
	Texture   Texture `yaml:"texture" toml:"texture"`
}

// Custom - блок, заданный данными, а не отдельным типом
type Custom struct {
	Base
	solid     bool
	climbable bool
	viscosity float32
	breakTime float32
}

// NewCustom строит блок по описанию. Solid по умолчанию true.
func NewCustom(s Props) *Custom {
	solid := true
	if s.Solid != nil {
		solid = *s.Solid
	}
	return &Custom{
		Base:      Base{BlockID: s.ID, BlockName: s.Name, Tex: s.Texture},
		solid:     solid,
		climbable: s.Climbable,
		viscosity: s.Viscosity,
		breakTime: s.BreakTime,
	}
}

func (c *Custom) Solid() bool { return c.solid }
func (c *Custom) Climbable() bool { return c.climbable }
func (c *Custom) Viscosity() float32 { return c.viscosity }
func (c *Custom) BreakTime() float32 { return c.breakTime }
