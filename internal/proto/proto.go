// Package proto holds the static vocabulary of the X11 core protocol:
// resource id / atom / timestamp types and the opcode, event, error, and
// mask constants defined by the X Window System Protocol, version 11.
package proto

// ResourceID is a 32-bit X11 resource identifier (Window, Pixmap, GC, ...).
type ResourceID uint32

// Atom is a server-interned string identifier.
type Atom uint32

// Timestamp is milliseconds since server start, or CurrentTime.
type Timestamp uint32

// None is the nil resource id, used for "no window"/"no cursor"/etc.
const None ResourceID = 0

// CurrentTime is a special timestamp value meaning "now".
const CurrentTime Timestamp = 0

// ByteOrder is the wire byte order a client negotiates at handshake time.
type ByteOrder byte

const (
	// MSBFirst is big-endian byte order (0x42 = 'B').
	MSBFirst ByteOrder = 'B'
	// LSBFirst is little-endian byte order (0x6c = 'l').
	LSBFirst ByteOrder = 'l'
)

// Predefined atoms, fixed by the X11 protocol.
const (
	AtomNone             Atom = 0
	AtomPrimary          Atom = 1
	AtomSecondary        Atom = 2
	AtomArc              Atom = 3
	AtomAtom             Atom = 4
	AtomBitmap           Atom = 5
	AtomCardinal         Atom = 6
	AtomColormap         Atom = 7
	AtomCursor           Atom = 8
	AtomCutBuffer0       Atom = 9
	AtomCutBuffer1       Atom = 10
	AtomCutBuffer2       Atom = 11
	AtomCutBuffer3       Atom = 12
	AtomCutBuffer4       Atom = 13
	AtomCutBuffer5       Atom = 14
	AtomCutBuffer6       Atom = 15
	AtomCutBuffer7       Atom = 16
	AtomDrawable         Atom = 17
	AtomFont             Atom = 18
	AtomInteger          Atom = 19
	AtomPixmap           Atom = 20
	AtomPoint            Atom = 21
	AtomRectangle        Atom = 22
	AtomResourceManager  Atom = 23
	AtomRGBColorMap      Atom = 24
	AtomRGBBestMap       Atom = 25
	AtomRGBBlueMap       Atom = 26
	AtomRGBDefaultMap    Atom = 27
	AtomRGBGrayMap       Atom = 28
	AtomRGBGreenMap      Atom = 29
	AtomRGBRedMap        Atom = 30
	AtomString           Atom = 31
	AtomVisualID         Atom = 32
	AtomWindow           Atom = 33
	AtomWMCommand        Atom = 34
	AtomWMHints          Atom = 35
	AtomWMClientMachine  Atom = 36
	AtomWMIconName       Atom = 37
	AtomWMIconSize       Atom = 38
	AtomWMName           Atom = 39
	AtomWMNormalHints    Atom = 40
	AtomWMSizeHints      Atom = 41
	AtomWMZoomHints      Atom = 42
	AtomMinSpace         Atom = 43
	AtomNormSpace        Atom = 44
	AtomMaxSpace         Atom = 45
	AtomEndSpace         Atom = 46
	AtomSuperscriptX     Atom = 47
	AtomSuperscriptY     Atom = 48
	AtomSubscriptX       Atom = 49
	AtomSubscriptY       Atom = 50
	AtomUnderlinePos     Atom = 51
	AtomUnderlineThick   Atom = 52
	AtomStrikeoutAscent  Atom = 53
	AtomStrikeoutDescent Atom = 54
	AtomItalicAngle      Atom = 55
	AtomXHeight          Atom = 56
	AtomQuadWidth        Atom = 57
	AtomWeight           Atom = 58
	AtomPointSize        Atom = 59
	AtomResolution       Atom = 60
	AtomCopyright        Atom = 61
	AtomNotice           Atom = 62
	AtomFontName         Atom = 63
	AtomFamilyName       Atom = 64
	AtomFullName         Atom = 65
	AtomCapHeight        Atom = 66
	AtomWMClass          Atom = 67
	AtomWMTransientFor   Atom = 68

	// FirstNotBuiltin is the first atom id the server allocates dynamically.
	FirstNotBuiltin Atom = 69
)

// BuiltinAtomNames maps the fixed low-range atom ids above to their names,
// in id order starting at AtomPrimary (id 1); index 0 is unused (None has
// no name).
var BuiltinAtomNames = []string{
	"",
	"PRIMARY", "SECONDARY", "ARC", "ATOM", "BITMAP", "CARDINAL", "COLORMAP",
	"CURSOR", "CUT_BUFFER0", "CUT_BUFFER1", "CUT_BUFFER2", "CUT_BUFFER3",
	"CUT_BUFFER4", "CUT_BUFFER5", "CUT_BUFFER6", "CUT_BUFFER7", "DRAWABLE",
	"FONT", "INTEGER", "PIXMAP", "POINT", "RECTANGLE", "RESOURCE_MANAGER",
	"RGB_COLOR_MAP", "RGB_BEST_MAP", "RGB_BLUE_MAP", "RGB_DEFAULT_MAP",
	"RGB_GRAY_MAP", "RGB_GREEN_MAP", "RGB_RED_MAP", "STRING", "VISUALID",
	"WINDOW", "WM_COMMAND", "WM_HINTS", "WM_CLIENT_MACHINE", "WM_ICON_NAME",
	"WM_ICON_SIZE", "WM_NAME", "WM_NORMAL_HINTS", "WM_SIZE_HINTS",
	"WM_ZOOM_HINTS", "MIN_SPACE", "NORM_SPACE", "MAX_SPACE", "END_SPACE",
	"SUPERSCRIPT_X", "SUPERSCRIPT_Y", "SUBSCRIPT_X", "SUBSCRIPT_Y",
	"UNDERLINE_POSITION", "UNDERLINE_THICKNESS", "STRIKEOUT_ASCENT",
	"STRIKEOUT_DESCENT", "ITALIC_ANGLE", "X_HEIGHT", "QUAD_WIDTH", "WEIGHT",
	"POINT_SIZE", "RESOLUTION", "COPYRIGHT", "NOTICE", "FONT_NAME",
	"FAMILY_NAME", "FULL_NAME", "CAP_HEIGHT", "WM_CLASS", "WM_TRANSIENT_FOR",
}

// Request opcodes (major opcodes 1-127 are core; 128+ are extensions).
const (
	OpCreateWindow            = 1
	OpChangeWindowAttributes  = 2
	OpGetWindowAttributes     = 3
	OpDestroyWindow           = 4
	OpDestroySubwindows       = 5
	OpChangeSaveSet           = 6
	OpReparentWindow          = 7
	OpMapWindow               = 8
	OpMapSubwindows           = 9
	OpUnmapWindow             = 10
	OpUnmapSubwindows         = 11
	OpConfigureWindow         = 12
	OpCirculateWindow         = 13
	OpGetGeometry             = 14
	OpQueryTree               = 15
	OpInternAtom              = 16
	OpGetAtomName             = 17
	OpChangeProperty          = 18
	OpDeleteProperty          = 19
	OpGetProperty             = 20
	OpListProperties          = 21
	OpSetSelectionOwner       = 22
	OpGetSelectionOwner       = 23
	OpConvertSelection        = 24
	OpSendEvent               = 25
	OpGrabPointer             = 26
	OpUngrabPointer           = 27
	OpGrabButton              = 28
	OpUngrabButton            = 29
	OpChangeActivePointerGrab = 30
	OpGrabKeyboard            = 31
	OpUngrabKeyboard          = 32
	OpGrabKey                 = 33
	OpUngrabKey               = 34
	OpAllowEvents             = 35
	OpGrabServer              = 36
	OpUngrabServer            = 37
	OpQueryPointer            = 38
	OpGetMotionEvents         = 39
	OpTranslateCoordinates    = 40
	OpWarpPointer             = 41
	OpSetInputFocus           = 42
	OpGetInputFocus           = 43
	OpQueryKeymap             = 44
	OpOpenFont                = 45
	OpCloseFont               = 46
	OpQueryFont               = 47
	OpQueryTextExtents        = 48
	OpListFonts               = 49
	OpListFontsWithInfo       = 50
	OpSetFontPath             = 51
	OpGetFontPath             = 52
	OpCreatePixmap            = 53
	OpFreePixmap              = 54
	OpCreateGC                = 55
	OpChangeGC                = 56
	OpCopyGC                  = 57
	OpSetDashes               = 58
	OpSetClipRectangles       = 59
	OpFreeGC                  = 60
	OpClearArea               = 61
	OpCopyArea                = 62
	OpCopyPlane               = 63
	OpPolyPoint               = 64
	OpPolyLine                = 65
	OpPolySegment             = 66
	OpPolyRectangle           = 67
	OpPolyArc                 = 68
	OpFillPoly                = 69
	OpPolyFillRectangle       = 70
	OpPolyFillArc             = 71
	OpPutImage                = 72
	OpGetImage                = 73
	OpPolyText8               = 74
	OpPolyText16              = 75
	OpImageText8              = 76
	OpImageText16             = 77
	OpCreateColormap          = 78
	OpFreeColormap            = 79
	OpCopyColormapAndFree     = 80
	OpInstallColormap         = 81
	OpUninstallColormap       = 82
	OpListInstalledColormaps  = 83
	OpAllocColor              = 84
	OpAllocNamedColor         = 85
	OpAllocColorCells         = 86
	OpAllocColorPlanes        = 87
	OpFreeColors              = 88
	OpStoreColors             = 89
	OpStoreNamedColor         = 90
	OpQueryColors             = 91
	OpLookupColor             = 92
	OpCreateCursor            = 93
	OpCreateGlyphCursor       = 94
	OpFreeCursor              = 95
	OpRecolorCursor           = 96
	OpQueryBestSize           = 97
	OpQueryExtension          = 98
	OpListExtensions          = 99
	OpChangeKeyboardMapping   = 100
	OpGetKeyboardMapping      = 101
	OpChangeKeyboardControl   = 102
	OpGetKeyboardControl      = 103
	OpBell                    = 104
	OpChangePointerControl    = 105
	OpGetPointerControl       = 106
	OpSetScreenSaver          = 107
	OpGetScreenSaver          = 108
	OpChangeHosts             = 109
	OpListHosts               = 110
	OpSetAccessControl        = 111
	OpSetCloseDownMode        = 112
	OpKillClient              = 113
	OpRotateProperties        = 114
	OpForceScreenSaver        = 115
	OpSetPointerMapping       = 116
	OpGetPointerMapping       = 117
	OpSetModifierMapping      = 118
	OpGetModifierMapping      = 119
	OpNoOperation             = 127

	// OpBigReqEnable is the sole BIG-REQUESTS extension request,
	// assigned the first free major opcode above the core range.
	OpBigReqEnable = 128
)

// Event codes.
const (
	EventKeyPress         = 2
	EventKeyRelease       = 3
	EventButtonPress      = 4
	EventButtonRelease    = 5
	EventMotionNotify     = 6
	EventEnterNotify      = 7
	EventLeaveNotify      = 8
	EventFocusIn          = 9
	EventFocusOut         = 10
	EventKeymapNotify     = 11
	EventExpose           = 12
	EventGraphicsExposure = 13
	EventNoExposure       = 14
	EventVisibilityNotify = 15
	EventCreateNotify     = 16
	EventDestroyNotify    = 17
	EventUnmapNotify      = 18
	EventMapNotify        = 19
	EventMapRequest       = 20
	EventReparentNotify   = 21
	EventConfigureNotify  = 22
	EventConfigureRequest = 23
	EventGravityNotify    = 24
	EventResizeRequest    = 25
	EventCirculateNotify  = 26
	EventCirculateRequest = 27
	EventPropertyNotify   = 28
	EventSelectionClear   = 29
	EventSelectionRequest = 30
	EventSelectionNotify  = 31
	EventColormapNotify   = 32
	EventClientMessage    = 33
	EventMappingNotify    = 34

	// EventSyntheticBit marks an event as sent via SendEvent rather than
	// server-generated.
	EventSyntheticBit = 0x80
)

// Error codes.
const (
	ErrRequest        = 1
	ErrValue          = 2
	ErrWindow         = 3
	ErrPixmap         = 4
	ErrAtom           = 5
	ErrCursor         = 6
	ErrFont           = 7
	ErrMatch          = 8
	ErrDrawable       = 9
	ErrAccess         = 10
	ErrAlloc          = 11
	ErrColormap       = 12
	ErrGContext       = 13
	ErrIDChoice       = 14
	ErrName           = 15
	ErrLength         = 16
	ErrImplementation = 17
)

// Window class values.
const (
	WindowClassCopyFromParent = 0
	WindowClassInputOutput    = 1
	WindowClassInputOnly      = 2
)

// Event mask bits, selected per (client, window).
const (
	EventMaskKeyPress             = 1 << 0
	EventMaskKeyRelease           = 1 << 1
	EventMaskButtonPress          = 1 << 2
	EventMaskButtonRelease        = 1 << 3
	EventMaskEnterWindow          = 1 << 4
	EventMaskLeaveWindow          = 1 << 5
	EventMaskPointerMotion        = 1 << 6
	EventMaskPointerMotionHint    = 1 << 7
	EventMaskButton1Motion        = 1 << 8
	EventMaskButton2Motion        = 1 << 9
	EventMaskButton3Motion        = 1 << 10
	EventMaskButton4Motion        = 1 << 11
	EventMaskButton5Motion        = 1 << 12
	EventMaskButtonMotion         = 1 << 13
	EventMaskKeymapState          = 1 << 14
	EventMaskExposure             = 1 << 15
	EventMaskVisibilityChange     = 1 << 16
	EventMaskStructureNotify      = 1 << 17
	EventMaskResizeRedirect       = 1 << 18
	EventMaskSubstructureNotify   = 1 << 19
	EventMaskSubstructureRedirect = 1 << 20
	EventMaskFocusChange          = 1 << 21
	EventMaskPropertyChange       = 1 << 22
	EventMaskColormapChange       = 1 << 23
	EventMaskOwnerGrabButton      = 1 << 24

	// PropagatingMask catches everything that propagates like pointer
	// input does, for the ancestor-walk in internal/evpipe.
	PropagatingMask = EventMaskKeyPress | EventMaskKeyRelease |
		EventMaskButtonPress | EventMaskButtonRelease |
		EventMaskPointerMotion | EventMaskButton1Motion |
		EventMaskButton2Motion | EventMaskButton3Motion |
		EventMaskButton4Motion | EventMaskButton5Motion |
		EventMaskButtonMotion
)

// CreateWindow / ChangeWindowAttributes value mask bits.
const (
	CWBackPixmap       = 1 << 0
	CWBackPixel        = 1 << 1
	CWBorderPixmap     = 1 << 2
	CWBorderPixel      = 1 << 3
	CWBitGravity       = 1 << 4
	CWWinGravity       = 1 << 5
	CWBackingStore     = 1 << 6
	CWBackingPlanes    = 1 << 7
	CWBackingPixel     = 1 << 8
	CWOverrideRedirect = 1 << 9
	CWSaveUnder        = 1 << 10
	CWEventMask        = 1 << 11
	CWDontPropagate    = 1 << 12
	CWColormap         = 1 << 13
	CWCursor           = 1 << 14
)

// ConfigureWindow value mask bits.
const (
	ConfigX           = 1 << 0
	ConfigY           = 1 << 1
	ConfigWidth       = 1 << 2
	ConfigHeight      = 1 << 3
	ConfigBorderWidth = 1 << 4
	ConfigSibling     = 1 << 5
	ConfigStackMode   = 1 << 6
)

// Stack mode values for ConfigureWindow / CirculateWindow.
const (
	StackAbove    = 0
	StackBelow    = 1
	StackTopIf    = 2
	StackBottomIf = 3
	StackOpposite = 4
)

// CreateGC / ChangeGC value mask bits.
const (
	GCFunction          = 1 << 0
	GCPlaneMask         = 1 << 1
	GCForeground        = 1 << 2
	GCBackground        = 1 << 3
	GCLineWidth         = 1 << 4
	GCLineStyle         = 1 << 5
	GCCapStyle          = 1 << 6
	GCJoinStyle         = 1 << 7
	GCFillStyle         = 1 << 8
	GCFillRule          = 1 << 9
	GCTile              = 1 << 10
	GCStipple           = 1 << 11
	GCTileStipXOrigin   = 1 << 12
	GCTileStipYOrigin   = 1 << 13
	GCFont              = 1 << 14
	GCSubwindowMode     = 1 << 15
	GCGraphicsExposures = 1 << 16
	GCClipXOrigin       = 1 << 17
	GCClipYOrigin       = 1 << 18
	GCClipMask          = 1 << 19
	GCDashOffset        = 1 << 20
	GCDashList          = 1 << 21
	GCArcMode           = 1 << 22
)

// Property mode values.
const (
	PropModeReplace = 0
	PropModePrepend = 1
	PropModeAppend  = 2
)

// PropertyNotify state values.
const (
	PropertyNewValue = 0
	PropertyDelete   = 1
)

// AnyPropertyType is the wildcard type accepted by GetProperty.
const AnyPropertyType Atom = 0

// Image formats for PutImage/GetImage.
const (
	ImageFormatBitmap   = 0
	ImageFormatXYPixmap = 1
	ImageFormatZPixmap  = 2
)

// Fill rules for FillPoly.
const (
	FillRuleEvenOdd = 0
	FillRuleWinding = 1
)

// Raster operation / GC function codes (subset; GXcopy dominates typical use).
const (
	GXclear = 0x0
	GXcopy  = 0x3
	GXxor   = 0x6
	GXinvert = 0xa
	GXset   = 0xf
)

// Close-down mode for SetCloseDownMode.
const (
	CloseDownDestroyAll   = 0
	CloseDownRetainPermanent = 1
	CloseDownRetainTemporary = 2
)
