package block

// ID представляет идентификатор блока на проводе
type ID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirID     ID = iota // 0
	StoneID             // 1
	GrassID             // 2
	WaterID             // 3
	SandID              // 4
	DirtID              // 5
	LavaID              // 6
	SnowID              // 7
	IceID               // 8
	LogID               // 9
	LeavesID            // 10
	PlanksID            // 11
	BedrockID           // 12

	// Блоки из таблицы определений начинаются с 100
	FirstCustomID ID = 100
)

// Texture - ссылка на клетку атласа. Сам атлас здесь не хранится.
type Texture struct {
	Atlas uint16 `yaml:"atlas" toml:"atlas" json:"atlas"`
	Col   uint16 `yaml:"col" toml:"col" json:"col"`
	Row   uint16 `yaml:"row" toml:"row" json:"row"`
}

// Block - неизменяемое описание типа блока.
// В таблице хранится один экземпляр на ID, все клетки чанков ссылаются на него.
type Block interface {
	ID() ID
	Name() string
	// Solid - блокирует ли блок движение
	Solid() bool
	// Climbable - можно ли по блоку лазить
	Climbable() bool
	// Viscosity - замедление внутри блока (0 для твёрдых)
	Viscosity() float32
	// BreakTime - время разрушения в секундах
	BreakTime() float32
	Texture() Texture
}

// Base реализует Block со значениями по умолчанию: твёрдый, не для лазания,
// без вязкости и с мгновенным разрушением. Варианты встраивают Base и
// переопределяют нужные свойства.
type Base struct {
	BlockID   ID
	BlockName string
	Tex       Texture
}

func (b *Base) ID() ID { return b.BlockID }
func (b *Base) Name() string { return b.BlockName }
func (b *Base) Solid() bool { return true }
func (b *Base) Climbable() bool { return false }
func (b *Base) Viscosity() float32 { return 0 }
func (b *Base) BreakTime() float32 { return 0 }
func (b *Base) Texture() Texture { return b.Tex }
